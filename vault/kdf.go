package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// kdfSalt is fixed so that re-deriving from the same password always
// reproduces the same key. It is public knowledge; it only separates
// CredBoard's derivations from other uses of PBKDF2/Argon2.
var kdfSalt = func() []byte {
	s := sha256.Sum256([]byte("credboard/kdf/v1"))
	return s[:]
}()

func DefaultKDFParams() *KDFParams {
	return &KDFParams{Algorithm: KDFPBKDF2, Iterations: 310000, Time: 3, Memory: 64 * 1024, Threads: 1}
}

func (p *KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFPBKDF2:
		if p.Iterations <= 0 {
			return fmt.Errorf("%w: pbkdf2 iterations must be positive", ErrValidation)
		}
	case KDFArgon2id:
		if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
			return fmt.Errorf("%w: argon2id time, memory and threads must be positive", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown kdf %q", ErrValidation, p.Algorithm)
	}
	return nil
}

// Stretch runs the slow password-based function and returns a
// MasterKeyLen-byte master. The caller owns (and should zero) the result.
func (p *KDFParams) Stretch(password []byte) []byte {
	if p.Algorithm == KDFArgon2id {
		return argon2.IDKey(password, kdfSalt, p.Time, p.Memory, p.Threads, MasterKeyLen)
	}
	return pbkdf2.Key(password, kdfSalt, p.Iterations, MasterKeyLen, sha256.New)
}

// Expand turns an already-stretched master into n bytes bound to context.
func Expand(master []byte, context string, n int) ([]byte, error) {
	h := hkdf.New(sha256.New, master, nil, []byte(context))
	out := make([]byte, n)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Derive returns n bytes of key material for (password, context). It is
// deterministic for a given KDFParams.
func (p *KDFParams) Derive(password []byte, context string, n int) ([]byte, error) {
	master := p.Stretch(password)
	defer zero(master)
	return Expand(master, context, n)
}

// HashPassword is the one-way master-password check value: lowercase hex
// SHA-256. It is never used as key material.
func HashPassword(password []byte) string {
	sum := sha256.Sum256(password)
	return hex.EncodeToString(sum[:])
}
