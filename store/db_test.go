package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	dir, err := ioutil.TempDir("", "voting_db")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := NewDB("state", GoLevelDBBackend, dir)
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())
	assert.DirExists(t, filepath.Join(dir, "state.db"))

	// 重新打开后数据还在
	db, err = NewDB("state", GoLevelDBBackend, dir)
	require.NoError(t, err)
	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, db.Close())

	mem, err := NewDB("state", MemDBBackend, "")
	require.NoError(t, err)
	require.NoError(t, mem.Set([]byte("k"), []byte("v")))

	_, err = NewDB("state", "rocksdb", dir)
	assert.Error(t, err)
}
