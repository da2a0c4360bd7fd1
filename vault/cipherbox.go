package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

const (
	cipherKeyLen = 32 // AES-256
	macKeyLen    = 32
	tagLen       = sha256.Size
)

// CipherBox encrypts UTF-8 text under a passphrase with AES-256-CBC and an
// HMAC-SHA256 tag over IV and ciphertext. Key, IV and MAC key are all
// re-derived from the passphrase, so the blob carries only ciphertext and tag.
type CipherBox struct {
	kdf *KDFParams
}

func NewCipherBox(kdf *KDFParams) *CipherBox {
	if kdf == nil {
		kdf = DefaultKDFParams()
	}
	return &CipherBox{kdf: kdf}
}

type boxKeys struct {
	enc, iv, mac []byte
}

func (k *boxKeys) wipe() {
	zero(k.enc)
	zero(k.iv)
	zero(k.mac)
}

func (b *CipherBox) keys(passphrase []byte) (*boxKeys, error) {
	master := b.kdf.Stretch(passphrase)
	defer zero(master)

	enc, err := Expand(master, ContextKey, cipherKeyLen)
	if err != nil {
		return nil, err
	}
	iv, err := Expand(master, ContextIV, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	mac, err := Expand(master, ContextMAC, macKeyLen)
	if err != nil {
		return nil, err
	}
	return &boxKeys{enc: enc, iv: iv, mac: mac}, nil
}

// Encrypt returns base64(ciphertext || tag). Empty plaintext maps to "".
func (b *CipherBox) Encrypt(plaintext string, passphrase []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	k, err := b.keys(passphrase)
	if err != nil {
		return "", err
	}
	defer k.wipe()

	block, err := aes.NewCipher(k.enc)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	defer zero(padded)

	out := make([]byte, len(padded), len(padded)+tagLen)
	cipher.NewCBCEncrypter(block, k.iv).CryptBlocks(out, padded)
	out = append(out, sign(k.mac, k.iv, out)...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any mismatch (wrong passphrase, tampering,
// truncation) is reported as ErrDecryption.
func (b *CipherBox) Decrypt(blob string, passphrase []byte) (string, error) {
	if blob == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: malformed encoding", ErrDecryption)
	}
	if len(raw) < aes.BlockSize+tagLen || (len(raw)-tagLen)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext has invalid length", ErrDecryption)
	}
	ct, tag := raw[:len(raw)-tagLen], raw[len(raw)-tagLen:]

	k, err := b.keys(passphrase)
	if err != nil {
		return "", err
	}
	defer k.wipe()

	if !hmac.Equal(tag, sign(k.mac, k.iv, ct)) {
		return "", fmt.Errorf("%w: authentication tag mismatch", ErrDecryption)
	}

	block, err := aes.NewCipher(k.enc)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, k.iv).CryptBlocks(pt, ct)

	pt, err = pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(pt) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecryption)
	}
	return string(pt), nil
}

func sign(key, iv, ct []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(iv)
	m.Write(ct)
	return m.Sum(nil)
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data)+n)
	copy(out, data)
	copy(out[len(data):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	for _, c := range data[len(data)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
		}
	}
	return data[:len(data)-n], nil
}
