package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fahmaliyi/credboard/logging"
	"github.com/fahmaliyi/credboard/vault"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard returns the OS clipboard.
func SystemClipboard() Clipboard { return systemClipboard{} }

// App holds the unlocked catalogue and persists every change to it. The
// REPL and the TUI are both thin layers over it.
type App struct {
	session *vault.Session
	store   *vault.Store
	log     logging.Logger

	cat  *vault.Catalogue
	seed bool

	clip        Clipboard
	clipTimeout time.Duration
	clipMu      sync.Mutex
	clipTimer   *time.Timer
}

type Option func(*App)

func WithClipboard(c Clipboard, timeout time.Duration) Option {
	return func(a *App) {
		a.clip = c
		a.clipTimeout = timeout
	}
}

// WithSampleData seeds a brand new vault with example clients.
func WithSampleData(seed bool) Option {
	return func(a *App) { a.seed = seed }
}

func NewApp(session *vault.Session, store *vault.Store, log logging.Logger, opts ...Option) *App {
	a := &App{
		session:     session,
		store:       store,
		log:         log.With("component", "app"),
		clip:        SystemClipboard(),
		clipTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *App) Session() *vault.Session { return a.session }

// Catalogue is the live catalogue. Callers must not mutate it directly.
func (a *App) Catalogue() *vault.Catalogue { return a.cat }

// Load reads the catalogue for the unlocked session. A first run starts an
// empty catalogue, or the sample one when seeding is enabled, and saves it.
func (a *App) Load(ctx context.Context) error {
	key, err := a.session.SessionKey()
	if err != nil {
		return err
	}
	defer vault.Zero(key)

	c, err := a.store.LoadCatalogue(ctx, key)
	if err != nil {
		return err
	}
	if c != nil {
		a.cat = c
		a.log.Debug(ctx, "catalogue loaded", "clients", len(c.Clients))
		return nil
	}

	if a.seed {
		c = vault.SampleCatalogue()
	} else {
		c = vault.NewCatalogue()
	}
	if err := a.store.SaveCatalogue(ctx, c, key); err != nil {
		return err
	}
	a.cat = c
	a.log.Info(ctx, "new catalogue created", "seeded", a.seed)
	return nil
}

// mutate applies fn to a copy of the catalogue and saves it. The live
// catalogue only changes once the save succeeded.
func (a *App) mutate(ctx context.Context, fn func(c *vault.Catalogue) error) error {
	if a.cat == nil {
		return vault.ErrNotAuthenticated
	}
	key, err := a.session.SessionKey()
	if err != nil {
		return err
	}
	defer vault.Zero(key)

	next := a.cat.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := a.store.SaveCatalogue(ctx, next, key); err != nil {
		a.log.Error(ctx, "catalogue save failed", "error", err)
		return err
	}
	a.cat = next
	return nil
}

func (a *App) AddClient(ctx context.Context, name, email string) (vault.Client, error) {
	cl, err := vault.NewClient(name, email)
	if err != nil {
		return vault.Client{}, err
	}
	return cl, a.mutate(ctx, func(c *vault.Catalogue) error { return c.AddClient(cl) })
}

func (a *App) UpdateClient(ctx context.Context, id, name, email string) error {
	return a.mutate(ctx, func(c *vault.Catalogue) error { return c.UpdateClient(id, name, email) })
}

func (a *App) DeleteClient(ctx context.Context, id string) error {
	return a.mutate(ctx, func(c *vault.Catalogue) error { return c.RemoveClient(id) })
}

func (a *App) AddLogin(ctx context.Context, clientID, username, secret, service, notes string) (vault.Login, error) {
	l, err := vault.NewLogin(username, secret, service, notes)
	if err != nil {
		return vault.Login{}, err
	}
	return l, a.mutate(ctx, func(c *vault.Catalogue) error { return c.AddLogin(clientID, l) })
}

func (a *App) UpdateLogin(ctx context.Context, clientID, loginID, username, secret, service, notes string) error {
	return a.mutate(ctx, func(c *vault.Catalogue) error {
		return c.UpdateLogin(clientID, loginID, username, secret, service, notes)
	})
}

func (a *App) DeleteLogin(ctx context.Context, clientID, loginID string) error {
	return a.mutate(ctx, func(c *vault.Catalogue) error { return c.RemoveLogin(clientID, loginID) })
}

// CopySecret puts secret on the clipboard and clears it after the
// configured timeout, unless something else was copied in the meantime.
// A zero timeout leaves the clipboard alone.
func (a *App) CopySecret(secret string) error {
	if err := a.clip.WriteAll(secret); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}

	a.clipMu.Lock()
	defer a.clipMu.Unlock()
	if a.clipTimer != nil {
		a.clipTimer.Stop()
	}
	if a.clipTimeout <= 0 {
		return nil
	}
	a.clipTimer = time.AfterFunc(a.clipTimeout, func() {
		if cur, err := a.clip.ReadAll(); err == nil && cur != secret {
			return
		}
		_ = a.clip.WriteAll("")
	})
	return nil
}

// Lock discards the session key and the decrypted catalogue.
func (a *App) Lock() {
	a.session.Logout()
	a.cat = nil
}

// Reset wipes every record and the catalogue.
func (a *App) Reset(ctx context.Context) error {
	if err := a.session.ResetAll(ctx); err != nil {
		return err
	}
	a.cat = nil
	return nil
}

// Close stops the pending clipboard clear and clears the clipboard now if
// it still holds a copied secret.
func (a *App) Close() {
	a.clipMu.Lock()
	defer a.clipMu.Unlock()
	if a.clipTimer != nil && a.clipTimer.Stop() {
		_ = a.clip.WriteAll("")
	}
}
