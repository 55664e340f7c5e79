package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), Config{})
	require.ErrorIs(t, err, ErrEmptyAddress)
	assert.Nil(t, client)
}

func TestRedisSourceCacheLookup(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("sources:https://www.reddit.com/r/golang:community", "src-1"))

	client, err := NewClient(context.Background(), Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisSourceCache(client, "sources:")

	id, found, err := c.Lookup(context.Background(), "https://www.reddit.com/r/golang:community")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "src-1", id)

	_, found, err = c.Lookup(context.Background(), "https://unknown:blog")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSourceCacheSurfacesConnectionErrors(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()

	_, _, err = NewRedisSourceCache(client, "").Lookup(context.Background(), "k")
	require.Error(t, err)
}
