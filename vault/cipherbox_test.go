package vault

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherBox_RoundTrip(t *testing.T) {
	box := NewCipherBox(testKDF())
	texts := []string{
		"MySecretPassword123!",
		"x",
		"exactly sixteen!",
		"ünïcödé — 日本語 🔐",
		strings.Repeat("long plaintext ", 500),
	}
	passphrases := []string{"TestKey123456789012345678901234567890", "k", "🗝"}

	for _, k := range passphrases {
		for _, text := range texts {
			blob, err := box.Encrypt(text, []byte(k))
			require.NoError(t, err)
			assert.NotEqual(t, text, blob)

			got, err := box.Decrypt(blob, []byte(k))
			require.NoError(t, err)
			assert.Equal(t, text, got)
		}
	}
}

func TestCipherBox_DifferentKeysProduceDifferentResults(t *testing.T) {
	box := NewCipherBox(testKDF())

	c1, err := box.Encrypt("TestPassword", []byte("Key1_123456789012345678901234567890"))
	require.NoError(t, err)
	c2, err := box.Encrypt("TestPassword", []byte("Key2_123456789012345678901234567890"))
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestCipherBox_WrongKeyFails(t *testing.T) {
	box := NewCipherBox(testKDF())

	blob, err := box.Encrypt("TestPassword", []byte("CorrectKey123456789012345678901234567890"))
	require.NoError(t, err)

	got, err := box.Decrypt(blob, []byte("WrongKey123456789012345678901234567890"))
	require.ErrorIs(t, err, ErrDecryption)
	assert.Empty(t, got)
}

func TestCipherBox_EmptyText(t *testing.T) {
	box := NewCipherBox(testKDF())

	blob, err := box.Encrypt("", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "", blob)

	pt, err := box.Decrypt("", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "", pt)
}

func TestCipherBox_DeterministicForSamePassphrase(t *testing.T) {
	box := NewCipherBox(testKDF())
	a, err := box.Encrypt("same", []byte("k"))
	require.NoError(t, err)
	b, err := box.Encrypt("same", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCipherBox_RejectsDamagedBlobs(t *testing.T) {
	box := NewCipherBox(testKDF())
	key := []byte("k")
	blob, err := box.Encrypt("some credential text", key)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	flipped := append([]byte(nil), raw...)
	flipped[0] ^= 0x01

	tagFlipped := append([]byte(nil), raw...)
	tagFlipped[len(tagFlipped)-1] ^= 0x80

	tests := map[string]string{
		"not base64":         "%%%not-base64%%%",
		"too short":          base64.StdEncoding.EncodeToString(raw[:10]),
		"truncated block":    base64.StdEncoding.EncodeToString(raw[:len(raw)-1]),
		"ciphertext bitflip": base64.StdEncoding.EncodeToString(flipped),
		"tag bitflip":        base64.StdEncoding.EncodeToString(tagFlipped),
		"dropped block":      base64.StdEncoding.EncodeToString(raw[16:]),
	}
	for name, damaged := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := box.Decrypt(damaged, key)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestPKCS7(t *testing.T) {
	for n := 0; n <= 33; n++ {
		data := []byte(strings.Repeat("a", n))
		padded := pkcs7Pad(data, 16)
		assert.Zero(t, len(padded)%16)
		assert.Greater(t, len(padded), n)

		out, err := pkcs7Unpad(padded, 16)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}

	_, err := pkcs7Unpad([]byte(strings.Repeat("\x00", 16)), 16)
	assert.ErrorIs(t, err, ErrDecryption)
	_, err = pkcs7Unpad(append([]byte(strings.Repeat("a", 14)), 3, 2), 16)
	assert.ErrorIs(t, err, ErrDecryption)
}
