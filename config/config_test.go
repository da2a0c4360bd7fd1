package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fahmaliyi/credboard/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, AppDirName, filepath.Base(c.DataDir))
	assert.Equal(t, "pbkdf2", c.KDF)
	assert.Equal(t, 310000, c.KDFIterations)
	assert.Equal(t, vault.DefaultChunkSize, c.ChunkSize)
	assert.Equal(t, vault.ProtectionAuto, c.Protection)
	assert.Equal(t, 30*time.Second, c.ClipboardTimeout)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, UIRepl, c.UI)
	assert.True(t, c.SeedSampleData)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *cfg)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"chunk_size": 500,
		"ui":         "tui",
	})
	os.Args = []string{"testbin", "-c", path, "-s", "900"}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.ChunkSize)
	assert.Equal(t, UITUI, cfg.UI)
}

func TestLoadConfig_ReturnsErrors(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name string
		args []string
	}{
		{"bad iteration count", []string{"testbin", "-n", "abc"}},
		{"missing config file", []string{"testbin", "-c", filepath.Join(t.TempDir(), "missing.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg, err := LoadConfig()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfig_KDFParams(t *testing.T) {
	c := Config{KDF: "argon2id", KDFIterations: 7}
	p := c.KDFParams()
	assert.Equal(t, vault.KDFArgon2id, p.Algorithm)
	assert.Equal(t, 7, p.Iterations)
	assert.Equal(t, vault.DefaultKDFParams().Memory, p.Memory)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown kdf", func(c *Config) { c.KDF = "md5" }},
		{"zero iterations", func(c *Config) { c.KDFIterations = 0 }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"unknown protection", func(c *Config) { c.Protection = "tpm" }},
		{"negative timeout", func(c *Config) { c.ClipboardTimeout = -time.Second }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown ui", func(c *Config) { c.UI = "gui" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), vault.ErrValidation)
		})
	}
}
