package vault

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/fahmaliyi/credboard/logging"
)

// Session is the process-wide authentication state. Build one at startup
// and hand it to whatever needs the session key. It is not safe for
// concurrent use.
type Session struct {
	store *Store
	kdf   *KDFParams
	log   logging.Logger
	key   *memguard.Enclave
}

func NewSession(store *Store, kdf *KDFParams, log logging.Logger) *Session {
	if kdf == nil {
		kdf = DefaultKDFParams()
	}
	return &Session{store: store, kdf: kdf, log: log.With("component", "session")}
}

func (s *Session) State() State {
	if s.key != nil {
		return Unlocked
	}
	return Locked
}

func (s *Session) IsUnlocked() bool { return s.State() == Unlocked }

// IsMasterPasswordConfigured never fails: an unreadable record counts as
// "not configured".
func (s *Session) IsMasterPasswordConfigured(ctx context.Context) bool {
	hash, err := s.store.LoadMasterHash(ctx)
	if err != nil {
		s.log.Warn(ctx, "master password record unreadable", "error", err)
		return false
	}
	return hash != ""
}

// CheckMasterPassword reports whether a master password is configured. Unlike
// IsMasterPasswordConfigured it tells "absent" apart from "present but
// unreadable": the latter returns true and the read error, and callers must
// not offer setup, which would overwrite the existing records.
func (s *Session) CheckMasterPassword(ctx context.Context) (bool, error) {
	exists, err := s.store.HasSecret(MasterHashFile)
	if err != nil || !exists {
		return exists, err
	}
	hash, err := s.store.LoadMasterHash(ctx)
	if err != nil {
		return true, fmt.Errorf("load master password record: %w", err)
	}
	if hash == "" {
		return true, fmt.Errorf("%w: master password record is empty", ErrCorruptStorage)
	}
	return true, nil
}

func validatePassword(password []byte) error {
	if len(strings.TrimSpace(string(password))) == 0 {
		return fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}
	if utf8.RuneCount(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLen)
	}
	return nil
}

// Setup stores the master-password hash and a fresh session key, then
// unlocks. Callers should check CheckMasterPassword first; Setup
// overwrites an existing configuration.
func (s *Session) Setup(ctx context.Context, password []byte) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	salt, err := randBytes(SaltLen)
	if err != nil {
		return err
	}
	material := make([]byte, 0, len(password)+base64.StdEncoding.EncodedLen(SaltLen))
	material = append(material, password...)
	material = base64.StdEncoding.AppendEncode(material, salt)
	key, err := s.deriveSessionKey(material, ContextSession)
	zero(material)
	if err != nil {
		return err
	}

	if err := s.store.SaveMasterHash(ctx, HashPassword(password)); err != nil {
		zero(key)
		return fmt.Errorf("save master password record: %w", err)
	}
	if err := s.store.SaveSessionKey(ctx, key); err != nil {
		zero(key)
		return fmt.Errorf("save session key record: %w", err)
	}

	s.unlock(key)
	s.log.Info(ctx, "master password configured")
	return nil
}

// Authenticate verifies password against the stored hash. The session is
// locked first, so any failure leaves it Locked.
func (s *Session) Authenticate(ctx context.Context, password []byte) error {
	s.Logout()

	if len(strings.TrimSpace(string(password))) == 0 {
		return fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}

	stored, err := s.store.LoadMasterHash(ctx)
	if err != nil {
		return fmt.Errorf("load master password record: %w", err)
	}
	if stored == "" {
		return fmt.Errorf("%w: no master password set up", ErrAuthentication)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(HashPassword(password))) != 1 {
		s.log.Info(ctx, "authentication rejected")
		return fmt.Errorf("%w: invalid password", ErrAuthentication)
	}

	key, err := s.store.LoadSessionKey(ctx)
	if err != nil {
		return fmt.Errorf("load session key record: %w", err)
	}
	if len(key) == 0 {
		// Recovery for an install that lost its session key record. The
		// derived key cannot open a catalogue written under the lost one.
		s.log.Warn(ctx, "session key record missing; regenerating from master password")
		key, err = s.deriveSessionKey(password, ContextRecovery)
		if err != nil {
			return err
		}
		if err := s.store.SaveSessionKey(ctx, key); err != nil {
			zero(key)
			return fmt.Errorf("save session key record: %w", err)
		}
	}

	s.unlock(key)
	s.log.Info(ctx, "authenticated")
	return nil
}

// TryRestore unlocks from persisted records without a password. It must
// only be reachable from trusted in-process callers.
func (s *Session) TryRestore(ctx context.Context) error {
	if !s.IsMasterPasswordConfigured(ctx) {
		return fmt.Errorf("%w: no master password set up", ErrAuthentication)
	}
	key, err := s.store.LoadSessionKey(ctx)
	if err != nil {
		return fmt.Errorf("load session key record: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: session key not found", ErrAuthentication)
	}
	s.unlock(key)
	s.log.Debug(ctx, "session restored")
	return nil
}

// SessionKey returns a copy of the unlocked key. The caller should Zero it.
func (s *Session) SessionKey() ([]byte, error) {
	if s.key == nil {
		return nil, ErrNotAuthenticated
	}
	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("open session key: %w", err)
	}
	defer buf.Destroy()
	return append([]byte(nil), buf.Bytes()...), nil
}

// Logout discards the in-memory key. Persisted records are untouched.
func (s *Session) Logout() {
	s.key = nil
}

// ResetAll irreversibly deletes both records and the catalogue. The session
// is logged out first, so it ends Locked even when a deletion fails.
func (s *Session) ResetAll(ctx context.Context) error {
	s.Logout()
	if err := s.store.ClearSecrets(ctx); err != nil {
		return fmt.Errorf("clear secrets: %w", err)
	}
	if err := s.store.ClearCatalogue(ctx); err != nil {
		return fmt.Errorf("clear catalogue: %w", err)
	}
	s.log.Info(ctx, "vault reset")
	return nil
}

// unlock seals key into an enclave; memguard wipes the source slice.
func (s *Session) unlock(key []byte) {
	s.key = memguard.NewEnclave(key)
}

// deriveSessionKey returns the hex encoding of SessionKeyLen derived bytes.
func (s *Session) deriveSessionKey(material []byte, context string) ([]byte, error) {
	raw, err := s.kdf.Derive(material, context, SessionKeyLen)
	if err != nil {
		return nil, err
	}
	defer zero(raw)
	key := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(key, raw)
	return key, nil
}
