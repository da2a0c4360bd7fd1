package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fahmaliyi/credboard/logging"
	"github.com/fahmaliyi/credboard/vault"
)

// Front ends selectable with -ui.
const (
	UIRepl = "repl"
	UITUI  = "tui"
)

// AppDirName is the per-user directory CredBoard keeps its files in.
const AppDirName = "CredBoard"

// Config holds runtime settings for the CredBoard CLI.
//
// Units: ClipboardTimeout is a time.Duration; ChunkSize counts characters
// of the encoded catalogue.
type Config struct {
	DataDir          string
	KDF              string
	KDFIterations    int
	ChunkSize        int
	Protection       string
	ClipboardTimeout time.Duration
	LogLevel         string
	UI               string
	SeedSampleData   bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	def := vault.DefaultKDFParams()
	c.DataDir = DefaultDataDir()
	c.KDF = string(def.Algorithm)
	c.KDFIterations = def.Iterations
	c.ChunkSize = vault.DefaultChunkSize
	c.Protection = vault.ProtectionAuto
	c.ClipboardTimeout = 30 * time.Second
	c.LogLevel = "warn"
	c.UI = UIRepl
	c.SeedSampleData = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultDataDir is <user config dir>/CredBoard, or ~/.credboard when the
// platform reports no config dir.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppDirName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".credboard")
	}
	return ".credboard"
}

// KDFParams turns the KDF settings into vault parameters. Argon2id cost
// settings are not configurable and use the vault defaults.
func (c *Config) KDFParams() *vault.KDFParams {
	p := vault.DefaultKDFParams()
	p.Algorithm = vault.KDFAlgorithm(c.KDF)
	p.Iterations = c.KDFIterations
	return p
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir is empty", vault.ErrValidation)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", vault.ErrValidation)
	}
	switch c.Protection {
	case vault.ProtectionAuto, vault.ProtectionKeyring, vault.ProtectionNone:
	default:
		return fmt.Errorf("%w: unknown protection mode %q", vault.ErrValidation, c.Protection)
	}
	if c.ClipboardTimeout < 0 {
		return fmt.Errorf("%w: clipboard timeout cannot be negative", vault.ErrValidation)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", vault.ErrValidation, err)
	}
	switch c.UI {
	case UIRepl, UITUI:
	default:
		return fmt.Errorf("%w: unknown ui %q", vault.ErrValidation, c.UI)
	}
	return nil
}
