package vault

import "errors"

const (
	MasterKeyLen  = 32
	SessionKeyLen = 32
	SaltLen       = 32

	SchemaVersion = 1

	MinPasswordLen   = 8
	DefaultChunkSize = 1800
)

// File names inside the data directory.
const (
	MasterHashFile   = "credboard.key"
	SessionKeyFile   = "credboard.enc"
	CatalogueFile    = "credboard.dat"
	ChunkManifest    = CatalogueFile + ".chunks"
	chunkFilePrefix  = CatalogueFile + ".chunk."
	tempFilePattern  = ".credboard-*.tmp"
	dataFilePerm     = 0o600
	dataDirPerm      = 0o700
	manifestMaxBytes = 32
)

// Derivation contexts. Each role gets its own so that one password never
// yields the same bytes twice.
const (
	ContextKey      = "credboard/cipher/key"
	ContextIV       = "credboard/cipher/iv"
	ContextMAC      = "credboard/cipher/mac"
	ContextSession  = "credboard/session"
	ContextRecovery = "credboard/session/recovery"
)

var (
	ErrValidation            = errors.New("vault: validation failed")
	ErrAuthentication        = errors.New("vault: authentication failed")
	ErrNotAuthenticated      = errors.New("vault: not authenticated")
	ErrDecryption            = errors.New("vault: decryption failed")
	ErrCorruptStorage        = errors.New("vault: corrupt storage")
	ErrProtectionUnavailable = errors.New("vault: platform secret protection unavailable")
	ErrNotFound              = errors.New("vault: not found")
)

type KDFAlgorithm string

const (
	KDFPBKDF2   KDFAlgorithm = "pbkdf2"
	KDFArgon2id KDFAlgorithm = "argon2id"
)

// KDFParams selects the password stretching function and its work factor.
// Iterations applies to PBKDF2; Time, Memory (KiB) and Threads to Argon2id.
type KDFParams struct {
	Algorithm  KDFAlgorithm
	Iterations int
	Time       uint32
	Memory     uint32
	Threads    uint8
}

// State is the authentication state of a Session.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}
