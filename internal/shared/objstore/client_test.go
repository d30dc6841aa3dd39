package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/config"
)

// newTestClient 需要 TEST_MINIO_ENDPOINT、MINIO_ROOT_USER、MINIO_ROOT_PASSWORD
func newTestClient(t *testing.T) *Client {
	t.Helper()
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	c, err := NewClient(config.MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ROOT_USER"),
		SecretKey: os.Getenv("MINIO_ROOT_PASSWORD"),
		Bucket:    "crowdtasks-test",
	})
	require.NoError(t, err)
	if err := c.EnsureBucket(context.Background()); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	return c
}

func TestClientArchiveRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.json"), []byte(`{}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a1", "out.txt"), []byte("ok"), 0644))

	prefix := "runs/test/" + uuid.NewString()
	n, err := ArchiveDir(ctx, c, dir, prefix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := c.Exists(ctx, prefix+"/run.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, prefix+"/missing.json")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := c.List(ctx, prefix+"/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{prefix + "/run.json", prefix + "/a1/out.txt"}, keys)
}
