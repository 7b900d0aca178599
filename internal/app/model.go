package app

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// KDBX file signature words, little-endian at offsets 0 and 4.
const (
	kdbxSignature1 uint32 = 0x9AA2D903
	kdbxSignature2 uint32 = 0xB54BFB67
)

// Model errors.
var (
	ErrNoFileData = errors.New("app: no storage and no file data")
	ErrNotKDBX    = errors.New("app: not a KDBX database")
)

// cache file permissions: owner-only, since the file is an encrypted vault.
const (
	cacheDirPerms  = 0o700
	cacheFilePerms = 0o600
)

// OpenedFile describes a database the model has loaded and cached.
type OpenedFile struct {
	ID        string
	Name      string
	Storage   string
	Path      string
	Rev       string
	Size      int
	CachePath string
	// HasPassword reports whether a non-empty password accompanied the
	// request.
	HasPassword bool
}

// Model opens databases from registered storage providers and keeps a local
// copy of each under its cache directory.
type Model struct {
	registry *Registry
	cacheDir string
	logger   *slog.Logger
}

// NewModel creates a model.
func NewModel(registry *Registry, cacheDir string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	return &Model{registry: registry, cacheDir: cacheDir, logger: logger}
}

// OpenFile loads the database named by req, checks that it is a KDBX file,
// and writes it to the cache. Decryption is left to the caller.
func (m *Model) OpenFile(ctx context.Context, req *FileOpenRequest) (*OpenedFile, error) {
	data, rev, err := m.load(ctx, req)
	if err != nil {
		return nil, err
	}

	if !IsKDBX(data) {
		return nil, fmt.Errorf("%w: %s", ErrNotKDBX, req.Name)
	}

	if req.KeyFilePath != "" && req.KeyFileData == nil {
		if _, err := os.Stat(req.KeyFilePath); err != nil {
			return nil, fmt.Errorf("app: key file %s: %w", req.KeyFilePath, err)
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	cachePath, err := m.writeCache(id, data)
	if err != nil {
		return nil, err
	}

	opened := &OpenedFile{
		ID:          id,
		Name:        req.Name,
		Storage:     req.Storage,
		Path:        req.Path,
		Rev:         rev,
		Size:        len(data),
		CachePath:   cachePath,
		HasPassword: !req.Password.IsEmpty(),
	}

	m.logger.Info("opened database",
		slog.String("id", id),
		slog.String("storage", req.Storage),
		slog.Int("bytes", len(data)),
	)

	return opened, nil
}

func (m *Model) load(ctx context.Context, req *FileOpenRequest) ([]byte, string, error) {
	if req.Storage == "" {
		if req.FileData == nil {
			return nil, "", ErrNoFileData
		}

		return req.FileData, req.Rev, nil
	}

	provider, err := m.registry.Get(req.Storage)
	if err != nil {
		return nil, "", err
	}

	data, stat, err := provider.Load(ctx, req.Path)
	if err != nil {
		return nil, "", err
	}

	return data, stat.Rev, nil
}

// writeCache stores data at <cacheDir>/<id>.kdbx via a temp file and rename
// so a reader never sees a partial file.
func (m *Model) writeCache(id string, data []byte) (string, error) {
	if err := os.MkdirAll(m.cacheDir, cacheDirPerms); err != nil {
		return "", fmt.Errorf("app: creating cache directory: %w", err)
	}

	target := filepath.Join(m.cacheDir, id+".kdbx")

	tmp, err := os.CreateTemp(m.cacheDir, ".open-*.tmp")
	if err != nil {
		return "", fmt.Errorf("app: creating cache file: %w", err)
	}

	tmpPath := tmp.Name()
	success := false

	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(cacheFilePerms); err != nil {
		return "", fmt.Errorf("app: setting cache file permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("app: writing cache file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("app: syncing cache file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("app: closing cache file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("app: renaming cache file: %w", err)
	}

	success = true

	return target, nil
}

// IsKDBX reports whether data starts with the KDBX signature.
func IsKDBX(data []byte) bool {
	if len(data) < 8 {
		return false
	}

	return binary.LittleEndian.Uint32(data[0:4]) == kdbxSignature1 &&
		binary.LittleEndian.Uint32(data[4:8]) == kdbxSignature2
}
