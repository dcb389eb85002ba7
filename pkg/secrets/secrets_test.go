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

package secrets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "github")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "github", "token-1"))
	require.NoError(t, s.Save(ctx, "github", "token-2"))
	v, ok, err := s.Load(ctx, "github")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-2", v)

	require.NoError(t, s.Save(ctx, "empty", ""))
	v, ok, err = s.Load(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	require.NoError(t, s.Delete(ctx, "github"))
	require.NoError(t, s.Delete(ctx, "never-saved"))
	_, ok, err = s.Load(ctx, "github")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := Require(ctx, s, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "yes", "v"))
	v, err := Require(ctx, s, "yes")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Save(context.Background(), "kept", "v"))
	require.NoError(t, s.Close())

	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	defer db.Close()
	err = db.View(func(tx *bolt.Tx) error {
		assert.Equal(t, []byte("v"), tx.Bucket([]byte(bucket)).Get([]byte("mcp_secret_kept")))
		assert.Nil(t, tx.Bucket([]byte(bucket)).Get([]byte("kept")))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "a", "1"))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}
