// Package infra 基础设施聚合层
//
// 根据配置初始化：
//   - Storage：持久化存储（SQLite / PostgreSQL / MongoDB）
//   - Locker：任务注册锁（配置 Redis 时为分布式锁，否则为进程内锁）
//   - Events：生命周期事件总线（配置 Redis 时为 Redis Streams，否则为内存实现）
//   - Archive：Run 产物归档（MinIO，可选）
package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crowdtasks-admin/internal/config"
	"crowdtasks-admin/internal/shared/eventbus"
	"crowdtasks-admin/internal/shared/lock"
	"crowdtasks-admin/internal/shared/objstore"
	"crowdtasks-admin/internal/shared/storage"
	"crowdtasks-admin/internal/shared/storage/dbutil"
	pgdriver "crowdtasks-admin/internal/shared/storage/driver/postgres"
	sqlitedriver "crowdtasks-admin/internal/shared/storage/driver/sqlite"
	"crowdtasks-admin/internal/shared/storage/mongostore"
	"crowdtasks-admin/internal/shared/storage/repository"
	"crowdtasks-admin/pkg/logging"
)

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Storage 持久化存储
	Storage storage.PersistentStore

	// Locker 任务注册锁
	Locker lock.Locker

	// Events 生命周期事件总线
	Events eventbus.EventBus

	// Archive Run 产物归档，未配置时为 nil
	Archive *objstore.Client

	closers []func() error
}

// New 根据配置初始化全部基础设施，任一组件失败时关闭已初始化的部分
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	inf := &Infrastructure{}

	store, err := NewPersistentStore(cfg)
	if err != nil {
		return nil, err
	}
	inf.Storage = store
	inf.closers = append(inf.closers, store.Close)
	logger.Info("Storage ready", "driver", cfg.Storage.Driver)

	locker, events, closeRedis, err := NewCoordination(ctx, cfg)
	if err != nil {
		inf.Close()
		return nil, err
	}
	inf.Locker = locker
	inf.Events = events
	if closeRedis != nil {
		inf.closers = append(inf.closers, closeRedis)
		logger.Info("Using Redis registration lock and event streams")
	}

	if cfg.ArchiveEnabled() {
		client, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			inf.Close()
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			inf.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		inf.Archive = client
		logger.Info("Run archive enabled", "bucket", client.Bucket())
	}

	return inf, nil
}

// NewPersistentStore 根据配置创建持久化存储
func NewPersistentStore(cfg *config.Config) (storage.PersistentStore, error) {
	switch dbutil.DriverType(strings.ToLower(cfg.Storage.Driver)) {
	case dbutil.DriverSQLite:
		if dir := filepath.Dir(cfg.Storage.SQLitePath); cfg.Storage.SQLitePath != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return newSQLStore(cfg.DatabaseURL, sqlitedriver.Open, sqlitedriver.NewDialect())
	case dbutil.DriverPostgres:
		return newSQLStore(cfg.DatabaseURL, pgdriver.Open, pgdriver.NewDialect())
	case dbutil.DriverMongoDB:
		s, err := mongostore.NewStore(cfg.DatabaseURL, cfg.Storage.MongoDB)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Storage.Driver)
	}
}

func newSQLStore(dsn string, open func(string) (*sql.DB, error), dialect dbutil.Dialect) (storage.PersistentStore, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}
	if err := dialect.AutoMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s auto-migrate failed: %w", dialect.DriverType(), err)
	}
	return repository.NewStore(db, dialect), nil
}

// Close 关闭所有基础设施连接
func (i *Infrastructure) Close() error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}
