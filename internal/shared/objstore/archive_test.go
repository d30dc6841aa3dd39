package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/config"
)

type memUploader struct {
	objects map[string]string
}

func (m *memUploader) Upload(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return io.ErrShortBuffer
	}
	m.objects[key] = string(data)
	return nil
}

func TestArchiveDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assignments", "a1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.json"), []byte(`{"id":"r1"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assignments", "a1", "data.txt"), []byte("hello"), 0644))
	require.NoError(t, os.Symlink("run.json", filepath.Join(dir, "link.json")))

	up := &memUploader{objects: map[string]string{}}
	n, err := ArchiveDir(context.Background(), up, dir, "runs/vision/r1")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{
		"runs/vision/r1/run.json":               `{"id":"r1"}`,
		"runs/vision/r1/assignments/a1/data.txt": "hello",
	}, up.objects)
}

func TestArchiveDirMissing(t *testing.T) {
	up := &memUploader{objects: map[string]string{}}
	_, err := ArchiveDir(context.Background(), up, filepath.Join(t.TempDir(), "nope"), "x")
	assert.Error(t, err)
}

func TestArchiveDirCancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ArchiveDir(ctx, &memUploader{objects: map[string]string{}}, dir, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{})
	assert.Error(t, err)

	_, err = NewClient(config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	c, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "crowdtasks", c.Bucket())
}
