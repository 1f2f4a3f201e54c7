package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/store"
	"gopkg.in/yaml.v3"
)

var _ store.Store = (*FileStore)(nil)

// FileStore keeps the store in a single YAML document on disk. Every read
// goes to the file so that a concurrent process (another CLI invocation
// logging out, for example) is observed immediately.
type FileStore struct {
	path   string
	closed bool
	lock   sync.Mutex
}

// New opens the store at path, creating the parent directory if needed.
// The file itself is created on first write.
func New(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.closed {
		return "", false, errors.ErrStoreClosed
	}
	values, err := fs.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (fs *FileStore) SetMany(_ context.Context, values map[string]string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.closed {
		return errors.ErrStoreClosed
	}
	current, err := fs.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return fs.write(current)
}

func (fs *FileStore) Delete(_ context.Context, keys ...string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.closed {
		return errors.ErrStoreClosed
	}
	current, err := fs.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := current[k]; ok {
			delete(current, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.write(current)
}

func (fs *FileStore) Close() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.closed = true
	return nil
}

func (fs *FileStore) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore read] %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("[filestore read] decode %s: %w", fs.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

// write replaces the file atomically via a temporary file in the same
// directory.
func (fs *FileStore) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("[filestore write] encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("[filestore write] %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("[filestore write] %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	return nil
}
