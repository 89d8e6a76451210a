package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.db")
	c, err := Open(path)
	require.Nil(t, err)
	defer c.Close()

	key := Key("(declare-const x Int)\n(assert (> x 0))")
	_, ok := c.Get(key)
	assert.False(t, ok)

	require.Nil(t, c.Put(key, "unsat"))
	verdict, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "unsat", verdict)
}

func Test_KeyIsScriptSensitive(t *testing.T) {
	a := Key("(assert true)")
	b := Key("(assert false)")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key("(assert true)"))
}

func Test_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.db")
	c, err := Open(path)
	require.Nil(t, err)
	key := Key("q")
	require.Nil(t, c.Put(key, "unsat"))
	require.Nil(t, c.Close())

	c, err = Open(path)
	require.Nil(t, err)
	defer c.Close()
	verdict, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "unsat", verdict)
}
