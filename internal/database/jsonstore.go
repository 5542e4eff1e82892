package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// JSONStore keeps the whole document in one indented JSON file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string {
	return s.path
}

// Load returns ErrNotFound when the file does not exist yet.
func (s *JSONStore) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, &PersistenceError{Op: "parse", Path: s.path, Err: err}
	}
	return doc, nil
}

// EncodeDocument renders a document in the store's file format.
func EncodeDocument(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeDocument parses the store's file format. Missing sections come back
// empty rather than nil.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.FillKeys()
	return &doc, nil
}

// Save writes to a temp file in the same directory and renames it over the
// destination.
func (s *JSONStore) Save(doc *Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func (s *JSONStore) Backup(dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Op: "backup", Path: dir, Err: err}
	}
	dst := backupPath(dir, at, ".json")
	if err := copyFile(s.path, dst); err != nil {
		return "", &PersistenceError{Op: "backup", Path: dst, Err: err}
	}
	return dst, nil
}

// Reset is a no-op: the next Save replaces the file wholesale.
func (s *JSONStore) Reset() error {
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// BackupName builds a file name such as backup-2024-03-01T09-15-04.000.json.
func BackupName(at time.Time, ext string) string {
	return fmt.Sprintf("backup-%s%s", at.UTC().Format("2006-01-02T15-04-05.000"), ext)
}

// backupPath picks a file name in dir that is not taken yet.
func backupPath(dir string, at time.Time, ext string) string {
	dst := filepath.Join(dir, BackupName(at, ext))
	for i := 1; ; i++ {
		if _, err := os.Stat(dst); err != nil {
			return dst
		}
		dst = filepath.Join(dir, BackupName(at, fmt.Sprintf("-%d%s", i, ext)))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
