package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	InitRedis(mr.Addr())
	rdb := GetClient()
	require.NotNil(t, rdb)
	defer func() { _ = rdb.Close() }()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	InitRedis("redis://" + mr.Addr() + "/0")
	assert.NotNil(t, GetClient(), "URL form is accepted")
	_ = GetClient().Close()
}

func TestInitRedis_UnreachableLeavesClientNil(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())

	InitRedis("")
	assert.Nil(t, GetClient())
}
