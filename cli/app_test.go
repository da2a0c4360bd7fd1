package cli

import (
	"os"
	"testing"
	"time"

	"github.com/fahmaliyi/credboard/logging"
	"github.com/fahmaliyi/credboard/vault"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_LoadFirstRun(t *testing.T) {
	a, st, _ := newTestApp(t)
	assert.Empty(t, a.Catalogue().Clients)
	assert.Empty(t, reload(t, a, st).Clients, "empty catalogue is saved on first run")

	seeded, st2, _ := newTestApp(t, WithSampleData(true))
	require.Len(t, seeded.Catalogue().Clients, 2)
	assert.Equal(t, "Google", seeded.Catalogue().Clients[0].DisplayName)
	assert.Len(t, reload(t, seeded, st2).Clients, 2)
}

func TestApp_LoadExisting(t *testing.T) {
	a, st, _ := newTestApp(t)
	_, err := a.AddClient(bg, "Acme", "")
	require.NoError(t, err)

	again := NewApp(a.Session(), st, logging.Nop(), WithSampleData(true))
	require.NoError(t, again.Load(bg))
	require.Len(t, again.Catalogue().Clients, 1, "existing catalogue is never reseeded")
	assert.Equal(t, "Acme", again.Catalogue().Clients[0].DisplayName)
}

func TestApp_LoadLocked(t *testing.T) {
	s, st := newTestSession(t)
	a := NewApp(s, st, logging.Nop())
	assert.ErrorIs(t, a.Load(bg), vault.ErrNotAuthenticated)
}

func TestApp_MutationsArePersisted(t *testing.T) {
	a, st, _ := newTestApp(t)

	cl, err := a.AddClient(bg, "Acme", "ops@acme.test")
	require.NoError(t, err)
	l, err := a.AddLogin(bg, cl.ID, "root", "hunter2!", "console.acme.test", "")
	require.NoError(t, err)
	require.NoError(t, a.UpdateLogin(bg, cl.ID, l.ID, "root", "rotated", "console.acme.test", "new"))
	require.NoError(t, a.UpdateClient(bg, cl.ID, "Acme Corp", ""))

	if diff := cmp.Diff(a.Catalogue(), reload(t, a, st)); diff != "" {
		t.Fatalf("persisted catalogue differs (-live +disk):\n%s", diff)
	}
	got := reload(t, a, st).Clients[0]
	assert.Equal(t, "Acme Corp", got.DisplayName)
	assert.Equal(t, "rotated", got.Logins[0].Secret)

	require.NoError(t, a.DeleteLogin(bg, cl.ID, l.ID))
	assert.Empty(t, reload(t, a, st).Clients[0].Logins)
	require.NoError(t, a.DeleteClient(bg, cl.ID))
	assert.Empty(t, reload(t, a, st).Clients)
}

func TestApp_FailedMutationLeavesCatalogueUntouched(t *testing.T) {
	a, st, _ := newTestApp(t)
	cl, err := a.AddClient(bg, "Acme", "")
	require.NoError(t, err)

	assert.ErrorIs(t, a.UpdateClient(bg, cl.ID, "", ""), vault.ErrValidation)
	assert.ErrorIs(t, a.DeleteClient(bg, "missing"), vault.ErrNotFound)
	_, err = a.AddLogin(bg, cl.ID, "u", "", "svc", "")
	assert.ErrorIs(t, err, vault.ErrValidation)

	// Make the data dir unwritable by replacing it with a file.
	require.NoError(t, os.RemoveAll(st.Dir()))
	require.NoError(t, os.WriteFile(st.Dir(), []byte("x"), 0o600))
	_, err = a.AddClient(bg, "Initech", "")
	assert.Error(t, err)

	require.Len(t, a.Catalogue().Clients, 1)
	assert.Equal(t, "Acme", a.Catalogue().Clients[0].DisplayName)
	assert.Empty(t, a.Catalogue().Clients[0].Logins)
}

func TestApp_LockedMutationFails(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.Lock()
	_, err := a.AddClient(bg, "Acme", "")
	assert.ErrorIs(t, err, vault.ErrNotAuthenticated)
	assert.Nil(t, a.Catalogue())
}

func TestApp_CopySecretClearsAfterTimeout(t *testing.T) {
	a, _, clip := newTestApp(t)
	a.clipTimeout = 20 * time.Millisecond

	require.NoError(t, a.CopySecret("s3cret"))
	assert.Equal(t, "s3cret", clip.get())
	assert.Eventually(t, func() bool { return clip.get() == "" }, time.Second, 5*time.Millisecond)
}

func TestApp_CopySecretKeepsForeignClipboard(t *testing.T) {
	a, _, clip := newTestApp(t)
	a.clipTimeout = 20 * time.Millisecond

	require.NoError(t, a.CopySecret("s3cret"))
	require.NoError(t, clip.WriteAll("copied elsewhere"))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "copied elsewhere", clip.get())
}

func TestApp_CopySecretWithoutTimeout(t *testing.T) {
	a, _, clip := newTestApp(t)
	a.clipTimeout = 0

	require.NoError(t, a.CopySecret("s3cret"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "s3cret", clip.get())
}

func TestApp_CloseClearsPendingSecret(t *testing.T) {
	a, _, clip := newTestApp(t)
	require.NoError(t, a.CopySecret("s3cret"))

	a.Close()
	assert.Equal(t, "", clip.get())
}

func TestApp_Reset(t *testing.T) {
	a, st, _ := newTestApp(t)
	_, err := a.AddClient(bg, "Acme", "")
	require.NoError(t, err)

	require.NoError(t, a.Reset(bg))
	assert.Nil(t, a.Catalogue())
	assert.False(t, a.Session().IsMasterPasswordConfigured(bg))
	entries, err := os.ReadDir(st.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
