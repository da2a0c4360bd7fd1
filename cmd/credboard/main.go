package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/fahmaliyi/credboard/cli"
	"github.com/fahmaliyi/credboard/config"
	"github.com/fahmaliyi/credboard/logging"
	"github.com/fahmaliyi/credboard/vault"
)

// keyringService names the wrapping key in the platform secret store.
const keyringService = "credboard"

func main() {
	// Wipe enclaves on SIGINT/SIGTERM and on normal exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		memguard.SafeExit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	log := logging.New(os.Stderr, level)

	ctx := context.Background()

	protector, err := vault.SelectProtector(ctx, cfg.Protection, keyringService, log)
	if err != nil {
		return err
	}
	kdf := cfg.KDFParams()
	store, err := vault.NewStore(cfg.DataDir, protector, kdf, log)
	if err != nil {
		return err
	}
	store.SetChunkSize(cfg.ChunkSize)
	log.Debug(ctx, "store ready", "dir", store.Dir(), "protector", protector.Name(), "kdf", kdf.Algorithm)

	session := vault.NewSession(store, kdf, log)
	con := cli.NewTerminalConsole()
	if err := cli.Unlock(ctx, session, con); err != nil {
		if errors.Is(err, vault.ErrProtectionUnavailable) {
			return fmt.Errorf("%w (run with -p keyring on a host with a secret store)", err)
		}
		return err
	}

	app := cli.NewApp(session, store, log,
		cli.WithClipboard(cli.SystemClipboard(), cfg.ClipboardTimeout),
		cli.WithSampleData(cfg.SeedSampleData),
	)
	defer app.Close()
	if err := app.Load(ctx); err != nil {
		if errors.Is(err, vault.ErrDecryption) {
			return fmt.Errorf("%w: the stored catalogue does not match the current session key; "+
				"check the kdf settings or reset the vault", err)
		}
		return err
	}

	if cfg.UI == config.UITUI {
		return cli.RunTUI(ctx, app)
	}
	return cli.RunCommands(ctx, app, con)
}
