// Copyright 2025 MCP Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package secrets stores credential values outside the project file. Auth
// schemes refer to a value by its secret id only.
package secrets

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Prefix namespaces secret ids in the backing store.
const Prefix = "mcp_secret_"

const bucket = "secrets"

// ErrNotFound is returned by Require for an unknown id.
var ErrNotFound = errors.New("secret not found")

// Store saves, loads and deletes secret values by id. Load reports false for
// an unknown id.
type Store interface {
	Save(ctx context.Context, id, value string) error
	Load(ctx context.Context, id string) (string, bool, error)
	Delete(ctx context.Context, id string) error
}

// Require loads a secret that must exist.
func Require(ctx context.Context, s Store, id string) (string, error) {
	v, ok, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return v, nil
}

// Key returns the backing store key for a secret id.
func Key(id string) string {
	return Prefix + id
}

// BoltStore keeps secrets in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the secret file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create secret store directory")
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open secret store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create secret bucket")
	}
	return &BoltStore{db: db}, nil
}

// Close releases the file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Save(_ context.Context, id, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(Key(id)), []byte(value))
	})
	return errors.Wrapf(err, "failed to save secret %s", id)
}

func (s *BoltStore) Load(_ context.Context, id string) (string, bool, error) {
	var (
		val   string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucket)).Get([]byte(Key(id))); v != nil {
			val, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to load secret %s", id)
	}
	return val, found, nil
}

func (s *BoltStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(Key(id)))
	})
	return errors.Wrapf(err, "failed to delete secret %s", id)
}

// MemoryStore keeps secrets in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Save(_ context.Context, id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[Key(id)] = value
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[Key(id)]
	return v, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, Key(id))
	return nil
}
