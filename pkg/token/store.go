package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oakmail/courier/pkg/errs"
	"github.com/zalando/go-keyring"
)

// Store reads and writes the token record to persistent storage.
//
// A corrupt or unreadable record is reported as errs.ErrTokenNotFound so the
// caller treats it the same as never having initialised OAuth2.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
}

// FileStore persists the token record as a JSON file with owner-only
// permissions. Writes use temp file + rename so a crash mid-write cannot
// leave a truncated record behind.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("token file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.ErrTokenNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: malformed token file %s", errs.ErrTokenNotFound, s.path)
	}
	return &rec, nil
}

func (s *FileStore) Save(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// KeyringStore persists the token record in the OS keyring instead of a
// plain file.
type KeyringStore struct {
	service string
	user    string
}

var _ Store = (*KeyringStore)(nil)

func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

func (s *KeyringStore) Load() (*Record, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, errs.ErrTokenNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(secret), &rec); err != nil {
		return nil, fmt.Errorf("%w: malformed keyring entry", errs.ErrTokenNotFound)
	}
	return &rec, nil
}

func (s *KeyringStore) Save(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, s.user, string(data))
}
