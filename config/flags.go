package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

var knownFlags = []string{"-d", "-k", "-n", "-s", "-p", "-t", "-l", "-ui", "-seed"}

// parseFlags populates Config fields from command-line flags. os.Args is
// filtered first so -c/-config and unknown flags are ignored here.
func parseFlags(cfg *Config) error {
	args := filterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.KDF, "k", cfg.KDF, "key derivation function (pbkdf2|argon2id)")
	fs.IntVar(&cfg.KDFIterations, "n", cfg.KDFIterations, "pbkdf2 iterations")
	fs.IntVar(&cfg.ChunkSize, "s", cfg.ChunkSize, "max catalogue chunk size")
	fs.StringVar(&cfg.Protection, "p", cfg.Protection, "secret protection (auto|keyring|none)")
	clipboardTimeout := fs.Int("t", int(cfg.ClipboardTimeout.Seconds()), "clipboard clear timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.UI, "ui", cfg.UI, "front end (repl|tui)")
	fs.BoolVar(&cfg.SeedSampleData, "seed", cfg.SeedSampleData, "seed sample data into a new vault")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.ClipboardTimeout = time.Duration(*clipboardTimeout) * time.Second
	return nil
}
