package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Put("protocol", "CT-2024-117")
	value, ok := cache.Get("protocol")
	require.True(t, ok)
	assert.Equal(t, "CT-2024-117", value)

	cache.Delete("protocol")
	_, ok = cache.Get("protocol")
	assert.False(t, ok)
}

func TestServices_contextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	services := &Services{Cache: NewMemoryCache()}
	ctx := WithServices(context.Background(), services)
	assert.Same(t, services, FromContext(ctx))
}

func TestFsDocumentStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFsDocumentStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "protocols/ct-117.txt", []byte("inclusion criteria")))
	data, err := store.Read(ctx, "protocols/ct-117.txt")
	require.NoError(t, err)
	assert.Equal(t, "inclusion criteria", string(data))

	// absolute locations bypass the base URL
	absolute := filepath.Join(dir, "standalone.txt")
	require.NoError(t, os.WriteFile(absolute, []byte("standalone"), 0o644))
	data, err = store.Read(ctx, absolute)
	require.NoError(t, err)
	assert.Equal(t, "standalone", string(data))

	_, err = store.Read(ctx, "protocols/absent.txt")
	assert.Error(t, err)
}
