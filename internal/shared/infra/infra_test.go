package infra

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/config"
	"crowdtasks-admin/internal/shared/eventbus"
	"crowdtasks-admin/internal/shared/lock"
	"crowdtasks-admin/internal/shared/model"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crowdtasks.db")
	return &config.Config{
		Storage:     config.StorageConfig{Driver: "sqlite", SQLitePath: path},
		DatabaseURL: fmt.Sprintf("file:%s?cache=shared&mode=rwc", path),
	}
}

func TestNewWithSQLite(t *testing.T) {
	cfg := sqliteConfig(t)

	inf, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer inf.Close()

	assert.IsType(t, &lock.Local{}, inf.Locker)
	assert.IsType(t, &eventbus.MemoryEventBus{}, inf.Events)
	assert.Nil(t, inf.Archive)

	ctx := context.Background()
	require.NoError(t, inf.Storage.CreateProject(ctx, &model.Project{ID: "p1", Name: "vision", CreatedAt: time.Now()}))
	p, err := inf.Storage.FindProjectByName(ctx, "vision")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	s1, err := NewPersistentStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s1.CreateRequester(ctx, &model.Requester{ID: "r1", Name: "lab", Provider: "mock", CreatedAt: time.Now()}))
	require.NoError(t, s1.Close())

	s2, err := NewPersistentStore(cfg)
	require.NoError(t, err)
	defer s2.Close()
	r, err := s2.GetRequester(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "lab", r.Name)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewPersistentStore(&config.Config{Storage: config.StorageConfig{Driver: "mysql"}})
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	inf, err := New(context.Background(), sqliteConfig(t), nil)
	require.NoError(t, err)
	assert.NoError(t, inf.Close())
	assert.NoError(t, inf.Close())
}
