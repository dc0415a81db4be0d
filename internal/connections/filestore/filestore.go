package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("filestore: record not found")
	ErrExists   = errors.New("filestore: record already exists")
)

// Store keeps one JSON document per file under a root directory. Writers
// never expose a half-written file: content goes to a temp file first and is
// then renamed (overwrite) or hard-linked (exclusive create) into place.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("filestore: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) Path(rel string) string { return filepath.Join(s.root, filepath.FromSlash(rel)) }

// ReadJSON decodes the document at rel into v. Missing files map to ErrNotFound.
func (s *Store) ReadJSON(rel string, v any) error {
	data, err := os.ReadFile(s.Path(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("filestore: decode %s: %w", rel, err)
	}
	return nil
}

// WriteJSON replaces the document at rel as a whole.
func (s *Store) WriteJSON(rel string, v any) error {
	tmp, err := s.writeTemp(rel, v)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.Path(rel)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("filestore: replace %s: %w", rel, err)
	}
	return nil
}

// CreateJSON writes the document at rel only if nothing is there yet, which
// makes it usable as a cross-process claim. Returns ErrExists otherwise.
func (s *Store) CreateJSON(rel string, v any) error {
	tmp, err := s.writeTemp(rel, v)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, s.Path(rel)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("filestore: create %s: %w", rel, err)
	}
	return nil
}

func (s *Store) Exists(rel string) (bool, error) {
	_, err := os.Stat(s.Path(rel))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *Store) Remove(rel string) error {
	if err := os.Remove(s.Path(rel)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns the sorted names of the *.json documents directly under dir.
// A missing directory is an empty list.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) writeTemp(rel string, v any) (string, error) {
	target := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("filestore: mkdir for %s: %w", rel, err)
	}
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("filestore: encode %s: %w", rel, err)
	}
	f, err := os.CreateTemp(filepath.Dir(target), ".tmp-"+filepath.Base(target)+"-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(append(encoded, '\n')); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
