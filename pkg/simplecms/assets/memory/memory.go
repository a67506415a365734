package memory

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Store is an in-memory implementation of the simplecms.AssetStore interface
type Store struct {
	mu     sync.RWMutex
	files  map[string]struct{}
	probes atomic.Int64
}

// New creates a new in-memory asset store holding files
func New(files ...string) *Store {
	s := &Store{files: make(map[string]struct{})}
	for _, f := range files {
		s.Put(f)
	}
	return s
}

// Put adds a file at p
func (s *Store) Put(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean(p)] = struct{}{}
}

// Remove deletes the file at p
func (s *Store) Remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, clean(p))
}

// Probes returns the number of Exists calls served
func (s *Store) Probes() int64 {
	return s.probes.Load()
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	s.probes.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[clean(p)]
	return ok, nil
}

func (s *Store) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	prefix := clean(dir) + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := []string{}
	for f := range s.files {
		if rest, ok := strings.CutPrefix(f, prefix); ok && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

var _ simplecms.AssetStore = (*Store)(nil)
