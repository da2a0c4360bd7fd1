package vault

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"testing"

	"github.com/fahmaliyi/credboard/logging"
	"github.com/stretchr/testify/require"
)

// testKDF keeps the suite fast; production defaults are far slower.
func testKDF() *KDFParams {
	return &KDFParams{Algorithm: KDFPBKDF2, Iterations: 1000}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), PlainProtector{}, testKDF(), logging.Nop())
	require.NoError(t, err)
	return s
}

func newTestSession(t *testing.T) (*Session, *Store) {
	t.Helper()
	st := newTestStore(t)
	return NewSession(st, testKDF(), logging.Nop()), st
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// twoClientCatalogue has one client with two logins and one with none.
func twoClientCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c := NewCatalogue()

	acme, err := NewClient("Acme", "ops@acme.test")
	require.NoError(t, err)
	require.NoError(t, c.AddClient(acme))

	l1, err := NewLogin("root", "hunter2!", "console.acme.test", "break-glass")
	require.NoError(t, err)
	l2, err := NewLogin("ci-bot", "t0ken", "ci.acme.test", "")
	require.NoError(t, err)
	require.NoError(t, c.AddLogin(acme.ID, l1))
	require.NoError(t, c.AddLogin(acme.ID, l2))

	empty, err := NewClient("Initech", "")
	require.NoError(t, err)
	require.NoError(t, c.AddClient(empty))
	return c
}

var bg = context.Background()

func mustJSON(t *testing.T, c *Catalogue) string {
	t.Helper()
	b, err := json.Marshal(c)
	require.NoError(t, err)
	return string(b)
}

func newCancelledContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx, cancel
}
