package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Store is a filesystem implementation of the simplecms.AssetStore interface
type Store struct {
	baseDir string
}

// Config options for the filesystem asset store
type Config struct {
	BaseDir string // Asset root; the static/ tree lives under it
	// CreateUploadDirs creates static/uploads/{books,articles,gallery} if missing
	CreateUploadDirs bool
}

// New creates a new filesystem asset store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if config.CreateUploadDirs {
		for _, c := range []simplecms.MediaCategory{simplecms.MediaCategoryBooks, simplecms.MediaCategoryArticles, simplecms.MediaCategoryGallery} {
			dir := filepath.Join(config.BaseDir, "static", "uploads", string(c))
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create upload directory: %w", err)
			}
		}
	}

	info, err := os.Stat(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", config.BaseDir)
	}

	return &Store{baseDir: config.BaseDir}, nil
}

// Exists reports whether a regular file exists at p
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	full, ok := s.resolve(p)
	if !ok {
		return false, nil
	}
	info, err := os.Stat(full)
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, s.storageError("exists", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// ListDirectory returns the regular files directly under dir, sorted by name
func (s *Store) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	full, ok := s.resolve(dir)
	if !ok {
		return []string{}, nil
	}
	entries, err := os.ReadDir(full)
	if isNotFound(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, s.storageError("list", dir, err)
	}

	// os.ReadDir returns entries sorted by filename
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// resolve maps a slash separated asset path to a file path under baseDir.
// Paths escaping the root are rejected.
func (s *Store) resolve(p string) (string, bool) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return s.baseDir, true
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return full, true
}

func (s *Store) storageError(op, key string, err error) error {
	return &simplecms.StorageError{
		Backend: "fs",
		Key:     key,
		Op:      op,
		Err:     fmt.Errorf("%w: %v", simplecms.ErrAssetStoreUnavailable, err),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

var _ simplecms.AssetStore = (*Store)(nil)
