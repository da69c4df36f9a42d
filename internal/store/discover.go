package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DatabasesDir is the subdirectory of the data directory holding the history
// database.
const DatabasesDir = "Databases"

// DefaultName is the file name used when a new database has to be created.
const DefaultName = "soundscope.sqlite"

var (
	ErrNoDatabase        = errors.New("store: no database found")
	ErrMultipleDatabases = errors.New("store: more than one database found")
)

// Discover returns the single *.sqlite file in root/Databases.
func Discover(root string) (string, error) {
	dir := filepath.Join(root, DatabasesDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w in %s", ErrNoDatabase, dir)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sqlite") {
			continue
		}
		found = append(found, filepath.Join(dir, e.Name()))
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoDatabase, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrMultipleDatabases, dir, strings.Join(found, ", "))
	}
}

// OpenDiscovered opens the database found by Discover, creating
// root/Databases/soundscope.sqlite when there is none.
func OpenDiscovered(root string) (*Store, string, error) {
	path, err := Discover(root)
	if errors.Is(err, ErrNoDatabase) {
		dir := filepath.Join(root, DatabasesDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create %s: %w", dir, err)
		}
		path, err = filepath.Join(dir, DefaultName), nil
	}
	if err != nil {
		return nil, "", err
	}
	st, err := Open(path)
	if err != nil {
		return nil, "", err
	}
	return st, path, nil
}
