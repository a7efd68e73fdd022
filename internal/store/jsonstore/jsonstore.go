package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// JSON-backed key/value storage. Single file, human-readable, portable.
// Every call goes to disk; an flock on a sidecar lock file keeps the TUI and
// one-shot commands from clobbering each other.

const (
	dataFileName = "store.json"
	lockFileName = "store.lock"
	appDirName   = ".tada"
)

// Keys the sync core keeps in the local store.
const (
	KeyTasks    = "todos"
	KeyUserID   = "todoUserId"
	KeyProjects = "projects"
)

// ErrCorrupt means the store file exists but is not a JSON object of strings.
var ErrCorrupt = errors.New("local store is corrupt")

// Store is a durable string key/value map rooted in one directory.
type Store struct {
	dir string
}

// DefaultDir is ~/.tada.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, appDirName), nil
}

// Open prepares dir (0700) for use as a store.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path is the data file location.
func (s *Store) Path() string { return filepath.Join(s.dir, dataFileName) }

// Get returns the value under key. A missing file or key is reported as absent,
// not as an error.
func (s *Store) Get(key string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := s.withLock(syscall.LOCK_SH, func() error {
		m, err := s.read()
		if err != nil {
			return err
		}
		val, ok = m[key]
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return val, ok, nil
}

// Set stores value under key. A corrupt file is replaced rather than failing the
// write, since the caller's value is the newest state there is.
func (s *Store) Set(key, value string) error {
	return s.update(func(m map[string]string) { m[key] = value })
}

func (s *Store) update(fn func(map[string]string)) error {
	return s.withLock(syscall.LOCK_EX, func() error {
		m, err := s.read()
		if err != nil {
			if !errors.Is(err, ErrCorrupt) {
				return err
			}
			m = map[string]string{}
		}
		fn(m)
		return s.write(m)
	})
}

func (s *Store) read() (map[string]string, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return map[string]string{}, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return m, nil
}

// write goes through a temp file and rename so a crash never leaves half a file.
func (s *Store) write(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (s *Store) withLock(how int, fn func() error) error {
	f, err := os.OpenFile(filepath.Join(s.dir, lockFileName), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("open lock: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}
