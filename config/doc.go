// Package config loads runtime configuration for the CredBoard CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// An unreadable JSON file or a malformed flag value makes LoadConfig return
// an error.
//
// Supported flags
//
//	-d string   data directory holding the vault files
//	-k string   key derivation function: pbkdf2 or argon2id
//	-n int      PBKDF2 iteration count
//	-s int      maximum catalogue chunk size in characters
//	-p string   secret protection: auto, keyring or none
//	-t int      clipboard clear timeout (seconds)
//	-l string   log level: debug, info, warn or error
//	-ui string  front end: repl or tui
//	-seed bool  seed sample data into a brand new vault
//
// # JSON schema
//
// Durations accept either strings like "30s" or integer nanoseconds. Keys
// that are absent keep their default:
//
//	{
//	  "data_dir": "/home/me/.config/CredBoard",
//	  "kdf": "pbkdf2",
//	  "kdf_iterations": 310000,
//	  "chunk_size": 1800,
//	  "protection": "auto",
//	  "clipboard_timeout": "30s",
//	  "log_level": "warn",
//	  "ui": "repl",
//	  "seed_sample_data": true
//	}
//
// The KDF settings must not change once a vault has been set up: the
// catalogue key is derived with them and a different setting cannot
// decrypt existing data.
package config
