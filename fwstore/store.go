package fwstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/muurk/rproc/internal/logging"
)

// DefaultCacheSize is the default number of firmware images kept in the
// in-memory cache.
const DefaultCacheSize = 8

// Store retrieves firmware images from an ordered list of directories,
// keeping recently loaded images in an LRU cache so repeated boots of
// the same firmware do not hit the filesystem.
//
// Store implements rproc.FirmwareStore and is safe for concurrent use.
type Store struct {
	paths []string
	cache *lru.Cache
}

// New creates a store searching paths in order. cacheSize bounds the
// number of cached images; values below 1 use DefaultCacheSize.
func New(paths []string, cacheSize int) (*Store, error) {
	if len(paths) == 0 {
		return nil, errors.New("fwstore: at least one search path is required")
	}
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("fwstore: create cache: %w", err)
	}

	return &Store{
		paths: append([]string(nil), paths...),
		cache: cache,
	}, nil
}

// Load returns the bytes of the named firmware image, searching the
// store's paths in order. The returned slice is shared with the cache
// and must be treated as read-only.
//
// Names are plain file names relative to a search path; absolute names
// and names escaping the search path are rejected.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(name); ok {
		logging.Debug("Firmware cache hit", zap.String("firmware", name))
		return cached.([]byte), nil
	}

	for _, dir := range s.paths {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read firmware %q: %w", name, err)
		}

		s.cache.Add(name, data)
		logging.Info("Loaded firmware image",
			zap.String("firmware", name),
			zap.String("dir", dir),
			zap.String("size", humanize.Bytes(uint64(len(data)))))
		return data, nil
	}

	return nil, fmt.Errorf("firmware %q not found in %v: %w", name, s.paths, fs.ErrNotExist)
}

// Invalidate drops the named image from the cache, forcing the next
// Load to re-read it from disk. Useful after a firmware update.
func (s *Store) Invalidate(name string) {
	s.cache.Remove(name)
}

func validateName(name string) error {
	if name == "" {
		return errors.New("fwstore: empty firmware name")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("fwstore: absolute firmware name %q", name)
	}
	// reject anything that could escape a search path
	if name != filepath.Clean(name) || strings.HasPrefix(name, "..") ||
		strings.Contains(name, ".."+string(filepath.Separator)) {
		return fmt.Errorf("fwstore: firmware name %q escapes search path", name)
	}
	return nil
}
