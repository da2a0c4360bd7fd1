package vault

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyringMagic = "CBK1"
	keyringUser  = "wrap-key"
)

// KeyringProtector seals secrets with XChaCha20-Poly1305 under a wrapping
// key that lives in the host's native secret store (Keychain, Credential
// Manager, Secret Service). Output layout: magic || nonce || ciphertext.
type KeyringProtector struct {
	service string
	key     []byte
}

// NewKeyringProtector loads the wrapping key for service, creating it on
// first use. Any secret-store failure is reported as ErrProtectionUnavailable.
func NewKeyringProtector(service string) (*KeyringProtector, error) {
	encoded, err := keyring.Get(service, keyringUser)
	switch {
	case err == nil:
		key, derr := hex.DecodeString(encoded)
		if derr != nil || len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: wrapping key in secret store is malformed", ErrCorruptStorage)
		}
		return &KeyringProtector{service: service, key: key}, nil
	case errors.Is(err, keyring.ErrNotFound):
		key, err := randBytes(chacha20poly1305.KeySize)
		if err != nil {
			return nil, err
		}
		if err := keyring.Set(service, keyringUser, hex.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtectionUnavailable, err)
		}
		return &KeyringProtector{service: service, key: key}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrProtectionUnavailable, err)
	}
}

func (p *KeyringProtector) Name() string { return ProtectionKeyring }

func (p *KeyringProtector) Protect(data []byte) ([]byte, error) {
	nonce, ct, err := AEADSeal(p.key, data, []byte(keyringMagic))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(keyringMagic)+len(nonce)+len(ct))
	out = append(out, keyringMagic...)
	out = append(out, nonce...)
	return append(out, ct...), nil
}

func (p *KeyringProtector) Unprotect(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(keyringMagic)) || len(data) < len(keyringMagic)+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: protected value has no secret-store header", ErrCorruptStorage)
	}
	body := data[len(keyringMagic):]
	nonce, ct := body[:chacha20poly1305.NonceSizeX], body[chacha20poly1305.NonceSizeX:]
	pt, err := AEADOpen(p.key, nonce, []byte(keyringMagic), ct)
	if err != nil {
		return nil, fmt.Errorf("%w: protected value failed authentication", ErrCorruptStorage)
	}
	return pt, nil
}

func AEADSeal(key, plaintext, aad []byte) ([]byte, []byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, nil, err
	}
	return nonce, aead.Seal(nil, nonce, plaintext, aad), nil
}

func AEADOpen(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}
