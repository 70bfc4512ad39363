package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"clip-worker/internal/logging"
)

// Scratch hands out unique file paths inside a single directory and keeps
// track of the ones that have not been released yet.
type Scratch struct {
	dir   string
	retry RetryConfig

	mu     sync.Mutex
	active map[string]struct{}
}

// File is a reserved scratch path. It is owned by the pipeline run that
// allocated it and must be released by that run.
type File struct {
	Path string

	scratch *Scratch
	once    sync.Once
}

// NewScratch creates the directory if needed and verifies it is writable.
func NewScratch(dir string) (*Scratch, error) {
	if dir == "" {
		return nil, errors.New("scratch directory not configured")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scratch directory: %w", err)
	}

	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	probe := filepath.Join(absDir, ".write-test-"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
		return nil, fmt.Errorf("scratch directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		logging.Warn("failed to remove write test file %s: %v", probe, err)
	}

	return &Scratch{
		dir:    absDir,
		retry:  DefaultRetryConfig(),
		active: make(map[string]struct{}),
	}, nil
}

// Dir returns the absolute scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// Allocate reserves a unique path named <prefix>-<uuid><ext>. No file is
// created.
func (s *Scratch) Allocate(prefix, ext string) *File {
	name := fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	s.active[path] = struct{}{}
	s.mu.Unlock()

	if obs := observe(); obs != nil {
		obs.ObserveScratchFiles(1)
	}

	return &File{Path: path, scratch: s}
}

// Active returns the reserved paths that have not been released, sorted.
func (s *Scratch) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.active))
	for p := range s.active {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Usage reports the number of regular files in the scratch directory and
// their total size.
func (s *Scratch) Usage() (files int, bytes int64, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files++
		bytes += info.Size()
	}
	return files, bytes, nil
}

// Purge removes files left behind by a previous process (for example after
// a crash) and returns the number of bytes freed. Paths reserved by this
// process are kept.
func (s *Scratch) Purge() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var freed int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if _, reserved := s.active[path]; reserved {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}
		if err := RemoveWithRetry(path, s.retry); err != nil {
			logging.Warn("failed to remove stale scratch file %s: %v", path, err)
			continue
		}
		freed += info.Size()
	}

	return freed, nil
}

// Create creates (or truncates) the scratch file for writing.
func (f *File) Create() (*os.File, error) {
	return CreateWithRetry(f.Path, f.scratch.retry)
}

// Open opens the scratch file for reading.
func (f *File) Open() (*os.File, error) {
	return OpenWithRetry(f.Path, f.scratch.retry)
}

// Size returns the current size of the scratch file.
func (f *File) Size() (int64, error) {
	info, err := StatWithRetry(f.Path, f.scratch.retry)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Release deletes the file if it exists and drops the reservation. It is
// safe to call more than once; only the first call has an effect.
func (f *File) Release() {
	f.once.Do(func() {
		if err := RemoveWithRetry(f.Path, f.scratch.retry); err != nil {
			logging.Warn("failed to remove scratch file %s: %v", f.Path, err)
			if obs := observe(); obs != nil {
				obs.ObserveCleanupFailure()
			}
		}

		f.scratch.mu.Lock()
		delete(f.scratch.active, f.Path)
		f.scratch.mu.Unlock()

		if obs := observe(); obs != nil {
			obs.ObserveScratchFiles(-1)
		}
	})
}
