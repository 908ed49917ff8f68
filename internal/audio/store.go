package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RefPrefix is the public path prefix under which stored clips are served.
const RefPrefix = "/static/audio/"

// Store writes audio blobs (question narrations and recorded answers) to a
// local directory and resolves the opaque references handed out to callers
// back to filesystem paths.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("audio directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory %q: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// Save writes the blob under the given file name and returns the public
// reference for it.
func (s *Store) Save(name string, data []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return "", fmt.Errorf("audio file name is required")
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file %q: %w", path, err)
	}

	return RefPrefix + name, nil
}

// Resolve maps a reference back to a filesystem path. The second return is
// false when the reference is malformed or the file no longer exists.
func (s *Store) Resolve(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || name == "" {
		return "", false
	}

	// References are opaque to callers, never trust them as paths.
	name = filepath.Base(name)

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}

	return path, true
}

// Dir returns the backing directory, used by the HTTP layer to serve clips.
func (s *Store) Dir() string {
	return s.dir
}
