package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fahmaliyi/credboard/logging"
)

// Store owns everything CredBoard keeps on disk: the protected master hash
// and session key, and the encrypted catalogue, either as one file or as
// fixed-size chunks plus a manifest.
type Store struct {
	dir       string
	chunkSize int
	protector Protector
	box       *CipherBox
	log       logging.Logger
}

// NewStore creates dir (0700) if needed. A nil protector means
// PlainProtector; a nil kdf means DefaultKDFParams.
func NewStore(dir string, protector Protector, kdf *KDFParams, log logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if protector == nil {
		protector = PlainProtector{}
	}
	if kdf == nil {
		kdf = DefaultKDFParams()
	}
	if err := kdf.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		dir:       dir,
		chunkSize: DefaultChunkSize,
		protector: protector,
		box:       NewCipherBox(kdf),
		log:       log.With("component", "store"),
	}, nil
}

func (s *Store) SetChunkSize(n int) {
	if n > 0 {
		s.chunkSize = n
	}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

func chunkName(i int) string { return chunkFilePrefix + strconv.Itoa(i) }

// --- small secrets ---

func (s *Store) SaveSecret(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	protected, err := s.protector.Protect(value)
	if err != nil {
		return fmt.Errorf("protect %s: %w", name, err)
	}
	if err := atomicWriteFile(s.path(name), protected, dataFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// LoadSecret returns nil, nil when the secret has never been saved.
func (s *Store) LoadSecret(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := readIfExists(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if raw == nil {
		return nil, nil
	}
	value, err := s.protector.Unprotect(raw)
	if err != nil {
		return nil, fmt.Errorf("unprotect %s: %w", name, err)
	}
	return value, nil
}

// HasSecret reports whether the record file exists, without reading or
// unprotecting it.
func (s *Store) HasSecret(name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", name, err)
}

func (s *Store) DeleteSecret(ctx context.Context, name string) error {
	if err := removeIfExists(s.path(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) SaveMasterHash(ctx context.Context, hash string) error {
	return s.SaveSecret(ctx, MasterHashFile, []byte(hash))
}

// LoadMasterHash returns "" when no master password is configured.
func (s *Store) LoadMasterHash(ctx context.Context) (string, error) {
	v, err := s.LoadSecret(ctx, MasterHashFile)
	return string(v), err
}

func (s *Store) SaveSessionKey(ctx context.Context, key []byte) error {
	return s.SaveSecret(ctx, SessionKeyFile, key)
}

func (s *Store) LoadSessionKey(ctx context.Context) ([]byte, error) {
	return s.LoadSecret(ctx, SessionKeyFile)
}

// ClearSecrets removes both records. Missing files are fine. The session
// key goes first so a failure never leaves it without a master record.
func (s *Store) ClearSecrets(ctx context.Context) error {
	if err := s.DeleteSecret(ctx, SessionKeyFile); err != nil {
		return err
	}
	return s.DeleteSecret(ctx, MasterHashFile)
}

// --- catalogue ---

// SaveCatalogue encrypts c under key and replaces whatever representation
// was on disk. Each step leaves either the previous or the new catalogue
// loadable, so an interrupted save never exposes a mixed state.
func (s *Store) SaveCatalogue(ctx context.Context, c *Catalogue, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = SchemaVersion
	}
	pt, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("serialize catalogue: %w", err)
	}
	blob, err := s.box.Encrypt(string(pt), key)
	zero(pt)
	if err != nil {
		return fmt.Errorf("encrypt catalogue: %w", err)
	}

	if len(blob) <= s.chunkSize {
		err = s.writeSingle(ctx, blob)
	} else {
		err = s.writeChunked(ctx, blob)
	}
	if err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}
	return nil
}

func (s *Store) writeSingle(ctx context.Context, blob string) error {
	if err := atomicWriteFile(s.path(CatalogueFile), []byte(blob), dataFilePerm); err != nil {
		return err
	}
	// The manifest takes precedence on load; dropping it switches readers
	// to the file just written.
	if err := removeIfExists(s.path(ChunkManifest)); err != nil {
		return err
	}
	if err := s.removeChunksFrom(0); err != nil {
		return err
	}
	s.log.Debug(ctx, "catalogue saved", "layout", "single", "bytes", len(blob))
	return nil
}

func (s *Store) writeChunked(ctx context.Context, blob string) error {
	chunks := splitChunks(blob, s.chunkSize)

	// Park the full ciphertext in the single file first so readers have a
	// complete copy while chunk files are being overwritten.
	if err := atomicWriteFile(s.path(CatalogueFile), []byte(blob), dataFilePerm); err != nil {
		return err
	}
	if err := removeIfExists(s.path(ChunkManifest)); err != nil {
		return err
	}
	for i, ch := range chunks {
		if err := atomicWriteFile(s.path(chunkName(i)), []byte(ch), dataFilePerm); err != nil {
			return err
		}
	}
	if err := atomicWriteFile(s.path(ChunkManifest), []byte(strconv.Itoa(len(chunks))), dataFilePerm); err != nil {
		return err
	}
	if err := removeIfExists(s.path(CatalogueFile)); err != nil {
		return err
	}
	if err := s.removeChunksFrom(len(chunks)); err != nil {
		return err
	}
	s.log.Debug(ctx, "catalogue saved", "layout", "chunked", "chunks", len(chunks), "bytes", len(blob))
	return nil
}

// LoadCatalogue returns nil, nil when no catalogue has been saved yet.
func (s *Store) LoadCatalogue(ctx context.Context, key []byte) (*Catalogue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, found, err := s.readCiphertext()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	pt, err := s.box.Decrypt(blob, key)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}

	var c Catalogue
	if err := json.Unmarshal([]byte(pt), &c); err != nil {
		return nil, fmt.Errorf("%w: catalogue is not valid JSON", ErrCorruptStorage)
	}
	if c.SchemaVersion > SchemaVersion || c.SchemaVersion < 0 {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorruptStorage, c.SchemaVersion)
	}
	c.SchemaVersion = SchemaVersion
	if c.Clients == nil {
		c.Clients = []Client{}
	}
	for i := range c.Clients {
		if c.Clients[i].Logins == nil {
			c.Clients[i].Logins = []Login{}
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStorage, err)
	}
	return &c, nil
}

// readCiphertext reassembles the stored blob from whichever layout is on
// disk.
func (s *Store) readCiphertext() (string, bool, error) {
	manifest, err := readIfExists(s.path(ChunkManifest))
	if err != nil {
		return "", false, fmt.Errorf("read manifest: %w", err)
	}
	if manifest == nil {
		data, err := readIfExists(s.path(CatalogueFile))
		if err != nil {
			return "", false, fmt.Errorf("read catalogue: %w", err)
		}
		if data == nil {
			return "", false, nil
		}
		return string(data), true, nil
	}

	n, err := parseManifest(manifest)
	if err != nil {
		return "", false, err
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		data, err := readIfExists(s.path(chunkName(i)))
		if err != nil {
			return "", false, fmt.Errorf("read chunk %d: %w", i, err)
		}
		if data == nil {
			return "", false, fmt.Errorf("%w: missing data chunk %d of %d", ErrCorruptStorage, i, n)
		}
		b.Write(data)
	}
	return b.String(), true, nil
}

func parseManifest(raw []byte) (int, error) {
	if len(raw) > manifestMaxBytes {
		return 0, fmt.Errorf("%w: chunk manifest is too large", ErrCorruptStorage)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: chunk manifest is not a positive count", ErrCorruptStorage)
	}
	return n, nil
}

// ClearCatalogue deletes every catalogue file in either layout.
func (s *Store) ClearCatalogue(ctx context.Context) error {
	if err := removeIfExists(s.path(ChunkManifest)); err != nil {
		return err
	}
	if err := removeIfExists(s.path(CatalogueFile)); err != nil {
		return err
	}
	return s.removeChunksFrom(0)
}

type chunkFile struct {
	index int
	path  string
}

// chunkFiles lists chunk files present on disk, by ascending index.
func (s *Store) chunkFiles() ([]chunkFile, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, chunkFilePrefix+"*"))
	if err != nil {
		return nil, err
	}
	var files []chunkFile
	for _, m := range matches {
		i, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), chunkFilePrefix))
		if err != nil || i < 0 {
			continue
		}
		files = append(files, chunkFile{index: i, path: m})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].index < files[b].index })
	return files, nil
}

// removeChunksFrom deletes chunks with index >= first, plus any file whose
// name is not the canonical spelling of its index (such as ".chunk.01").
func (s *Store) removeChunksFrom(first int) error {
	files, err := s.chunkFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.index < first && filepath.Base(f.path) == chunkName(f.index) {
			continue
		}
		if err := removeIfExists(f.path); err != nil {
			return err
		}
	}
	return nil
}

func splitChunks(s string, size int) []string {
	chunks := make([]string, 0, (len(s)+size-1)/size)
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}
