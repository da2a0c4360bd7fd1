package vault

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fahmaliyi/credboard/logging"
)

// Protector wraps small secrets (the master-password hash and the session
// key) before they touch disk.
type Protector interface {
	Protect(data []byte) ([]byte, error)
	Unprotect(data []byte) ([]byte, error)
	Name() string
}

// Protection modes accepted by SelectProtector.
const (
	ProtectionAuto    = "auto"
	ProtectionKeyring = "keyring"
	ProtectionNone    = "none"
)

// PlainProtector stores secrets as-is. It is the documented fallback for
// hosts without a usable secret store.
type PlainProtector struct{}

func (PlainProtector) Protect(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (PlainProtector) Unprotect(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte(keyringMagic)) {
		return nil, fmt.Errorf("%w: value was sealed by the platform secret store", ErrProtectionUnavailable)
	}
	return append([]byte(nil), data...), nil
}

func (PlainProtector) Name() string { return ProtectionNone }

// SelectProtector picks the protector for this process. In auto mode an
// unreachable secret store degrades to PlainProtector with a single warning.
func SelectProtector(ctx context.Context, mode, service string, log logging.Logger) (Protector, error) {
	switch mode {
	case ProtectionNone:
		log.Warn(ctx, "secret protection disabled by configuration; secrets are stored unprotected")
		return PlainProtector{}, nil
	case ProtectionKeyring:
		return NewKeyringProtector(service)
	case ProtectionAuto, "":
		p, err := NewKeyringProtector(service)
		if err != nil {
			log.Warn(ctx, "platform secret protection unavailable; secrets are stored unprotected", "error", err)
			return PlainProtector{}, nil
		}
		log.Debug(ctx, "using platform secret protection", "protector", p.Name())
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown protection mode %q", ErrValidation, mode)
}
