package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Contract(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	v, err := r.Get(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, v)

	buf := []byte("value")
	require.NoError(t, r.Set(ctx, "ns.x", buf))
	buf[0] = 'V'

	v, err = r.Get(ctx, "ns.x")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v, "stored value must not alias caller memory")

	require.NoError(t, r.Set(ctx, "ns.y", []byte("y")))
	require.NoError(t, r.Set(ctx, "other.z", []byte("z")))

	m, err := r.List(ctx, "ns.")
	require.NoError(t, err)
	assert.Len(t, m, 2)

	require.NoError(t, r.Delete(ctx, "ns.x", "missing"))
	require.NoError(t, r.DeletePrefix(ctx, "ns."))

	m, err = r.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"other.z": []byte("z")}, m)
}
