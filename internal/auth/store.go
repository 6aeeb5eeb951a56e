package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teemow/calendar-mcp/internal/faults"
)

// Store persists the single TokenRecord to a JSON file. Saves are
// atomic with respect to process crashes: the record is written to a
// temp file in the same directory and renamed into place, so a
// partially written record is never read back.
type Store struct {
	path string
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored token record. A missing file is not an error:
// it returns (nil, nil), the "unauthorized" state.
func (s *Store) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.StorageError, "failed to read token file", err)
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, faults.Wrap(faults.StorageError, "token file is corrupt", err)
	}
	return &record, nil
}

// Save writes the token record atomically, creating the parent
// directory if needed. The file is restricted to the owner since it
// holds live credentials.
func (s *Store) Save(record *TokenRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return faults.Wrap(faults.StorageError, "failed to encode token record", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return faults.Wrap(faults.StorageError, "failed to create token directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return faults.Wrap(faults.StorageError, "failed to create temp token file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return faults.Wrap(faults.StorageError, "failed to write token file", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return faults.Wrap(faults.StorageError, "failed to restrict token file permissions", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return faults.Wrap(faults.StorageError, "failed to close temp token file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return faults.Wrap(faults.StorageError, "failed to replace token file", err)
	}
	return nil
}
