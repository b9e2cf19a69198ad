// Package filestore is the on-disk Store used by the terminal client.
// Values are sealed with securebox before they touch the disk.
package filestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/nimbly/internal/crypto/securebox"
	"github.com/and161185/nimbly/internal/storage"
)

const (
	dataFile = "store.json"
	keyFile  = "store.key"
	saltFile = "store.salt"
)

// DefaultDir returns $XDG_CONFIG_HOME/nimbly or ~/.config/nimbly.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "nimbly")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nimbly")
}

// Store keeps sealed values in a single JSON document.
type Store struct {
	dir string
	key []byte
	mu  sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// Open prepares dir and loads (or creates) the sealing key. With a non-empty
// passphrase the key is derived from it and a persisted salt instead.
func Open(dir string, passphrase string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	var (
		key []byte
		err error
	)
	if passphrase != "" {
		var salt []byte
		salt, err = loadOrCreate(filepath.Join(dir, saltFile), securebox.SaltLen)
		if err == nil {
			key = securebox.DeriveKey([]byte(passphrase), salt)
		}
	} else {
		key, err = loadOrCreate(filepath.Join(dir, keyFile), securebox.KeyLen)
	}
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, key: key}, nil
}

func loadOrCreate(path string, n int) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != n {
			return nil, fmt.Errorf("%s: unexpected length %d", filepath.Base(path), len(b))
		}
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	b, err = securebox.Rand(n)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}

// Dir returns the directory holding the store.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path() string { return filepath.Join(s.dir, dataFile) }

func (s *Store) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", dataFile, err)
	}
	return m, nil
}

func (s *Store) save(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, dataFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path())
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := m[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	sealed, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	pt, err := securebox.Open(s.key, sealed, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return string(pt), nil
}

// Set implements storage.Store.
func (s *Store) Set(_ context.Context, key, value string) error {
	sealed, err := securebox.Seal(s.key, []byte(value), []byte(key))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = base64.StdEncoding.EncodeToString(sealed)
	return s.save(m)
}

// Delete implements storage.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}
