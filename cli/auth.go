package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fahmaliyi/credboard/vault"
)

// MaxPasswordAttempts bounds both setup and login prompts.
const MaxPasswordAttempts = 3

// Unlock brings the session to Unlocked: it restores a persisted session,
// runs first-time setup, or asks for the master password. Setup only runs
// when no master record exists; a record that cannot be read is an error
// and is left as it is.
func Unlock(ctx context.Context, s *vault.Session, con *Console) error {
	configured, err := s.CheckMasterPassword(ctx)
	if err != nil {
		return err
	}
	if !configured {
		return SetupMasterPassword(ctx, s, con)
	}
	if err := s.TryRestore(ctx); err == nil {
		con.Println("Session restored.")
		return nil
	}
	return Login(ctx, s, con)
}

// SetupMasterPassword asks for a new master password twice.
func SetupMasterPassword(ctx context.Context, s *vault.Session, con *Console) error {
	con.Println("No master password found. Set one up to create your vault.")
	con.Printf("It must be at least %d characters long.\n", vault.MinPasswordLen)

	for attempt := 1; attempt <= MaxPasswordAttempts; attempt++ {
		pw, err := con.ReadSecret("Set master password: ")
		if err != nil {
			return err
		}
		confirm, err := con.ReadSecret("Confirm master password: ")
		if err != nil {
			vault.Zero(pw)
			return err
		}
		match := bytes.Equal(pw, confirm)
		vault.Zero(confirm)
		if !match {
			vault.Zero(pw)
			con.Println("Passwords do not match.")
			continue
		}

		err = s.Setup(ctx, pw)
		vault.Zero(pw)
		switch {
		case err == nil:
			con.Println("Master password set.")
			return nil
		case errors.Is(err, vault.ErrValidation):
			con.Println(userMessage(err))
		default:
			return err
		}
	}
	return fmt.Errorf("%w: too many attempts", vault.ErrValidation)
}

// Login asks for the master password up to MaxPasswordAttempts times.
func Login(ctx context.Context, s *vault.Session, con *Console) error {
	for attempt := 1; attempt <= MaxPasswordAttempts; attempt++ {
		pw, err := con.ReadSecret("Master password: ")
		if err != nil {
			return err
		}
		err = s.Authenticate(ctx, pw)
		vault.Zero(pw)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, vault.ErrAuthentication), errors.Is(err, vault.ErrValidation):
			con.Printf("%s (%d/%d)\n", userMessage(err), attempt, MaxPasswordAttempts)
		default:
			return err
		}
	}
	return fmt.Errorf("%w: too many failed attempts", vault.ErrAuthentication)
}

// userMessage renders an error for the terminal, mapping the vault
// sentinels to short explanations.
func userMessage(err error) string {
	switch {
	case errors.Is(err, vault.ErrAuthentication):
		return "Invalid master password."
	case errors.Is(err, vault.ErrNotAuthenticated):
		return "The vault is locked."
	case errors.Is(err, vault.ErrDecryption):
		return "The vault could not be decrypted with the current session key."
	case errors.Is(err, vault.ErrCorruptStorage):
		return "Stored vault data is damaged: " + detail(err, vault.ErrCorruptStorage)
	case errors.Is(err, vault.ErrProtectionUnavailable):
		return "The platform secret store is unavailable: " + detail(err, vault.ErrProtectionUnavailable)
	case errors.Is(err, vault.ErrNotFound):
		return "Not found."
	case errors.Is(err, vault.ErrValidation):
		return "Invalid input: " + detail(err, vault.ErrValidation)
	}
	return "Error: " + err.Error()
}

// detail strips the sentinel prefix from a wrapped error's text.
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}
