package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"crowdtasks-admin/internal/marketplace"
)

// Load 加载配置
//  1. 加载 .env.{env}（敏感信息）
//  2. 默认值 → common.yaml → {env}.yaml
//  3. 环境变量覆盖
func Load() (*Config, error) {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yamlCfg, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}

	storageCfg := yamlCfg.Storage
	storageCfg.Password = os.Getenv("DB_PASSWORD")
	if d := os.Getenv("STORAGE_DRIVER"); d != "" {
		storageCfg.Driver = d
	}

	paths := yamlCfg.Paths
	if v := os.Getenv("CROWDTASKS_DATA_DIR"); v != "" {
		paths.DataDir = v
	}
	if v := os.Getenv("CROWDTASKS_TASKS_DIR"); v != "" {
		paths.TasksDir = v
	}
	if paths.TasksDir == "" {
		paths.TasksDir = filepath.Join(paths.DataDir, "tasks")
	}
	if storageCfg.SQLitePath == "" {
		storageCfg.SQLitePath = filepath.Join(paths.DataDir, "crowdtasks.db")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	storageCfg.Driver = detectDatabaseDriver(storageCfg.Driver, databaseURL)
	if databaseURL == "" {
		databaseURL = buildDatabaseURL(storageCfg)
	}

	minioCfg := yamlCfg.MinIO
	minioCfg.AccessKey = firstEnv("MINIO_ROOT_USER", "MINIO_ACCESS_KEY")
	minioCfg.SecretKey = firstEnv("MINIO_ROOT_PASSWORD", "MINIO_SECRET_KEY")
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		minioCfg.Endpoint = v
	}

	market := yamlCfg.Marketplace
	if v := os.Getenv("AGE_RANGE_QUESTION_ID"); v != "" {
		market.AgeRangeQuestionID = v
	}

	logCfg := yamlCfg.Log
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		logCfg.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		logCfg.Format = v
	}

	return &Config{
		Env:            env,
		Storage:        storageCfg,
		DatabaseURL:    databaseURL,
		RedisURL:       getEnv("REDIS_URL", yamlCfg.Redis.URL),
		RedisLockTTL:   yamlCfg.Redis.LockTTL,
		MinIO:          minioCfg,
		Paths:          paths,
		Marketplace:    market,
		Log:            logCfg,
		ConfigFilePath: yamlCfg.loadedFrom,
	}, nil
}

// defaults 硬编码默认值
func defaults() *yamlConfigInternal {
	return &yamlConfigInternal{YAMLConfig: YAMLConfig{
		Storage: StorageConfig{
			Driver:   "sqlite",
			Host:     "localhost",
			Port:     5432,
			User:     "crowdtasks",
			Database: "crowdtasks",
			SSLMode:  "disable",
			MongoURI: "mongodb://localhost:27017",
			MongoDB:  "crowdtasks",
		},
		Redis: RedisConfig{LockTTL: 5 * time.Minute},
		MinIO: MinIOConfig{Bucket: "crowdtasks"},
		Paths: PathsConfig{DataDir: "data"},
		Marketplace: MarketplaceConfig{
			AgeRangeQuestionID: marketplace.DefaultAgeRangeQuestionID,
			IDOption:           marketplace.IDURLParameters.String(),
		},
		Log: loggingDefaults(),
	}}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml；文件不存在时跳过，格式错误时报错
func loadYAMLConfig(env Environment) (*yamlConfigInternal, error) {
	cfg := defaults()

	for _, name := range []string{"common.yaml", fmt.Sprintf("%s.yaml", env)} {
		for _, base := range effectiveConfigPaths() {
			path := filepath.Join(base, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			if name != "common.yaml" {
				cfg.loadedFrom = path
			}
			break
		}
	}

	return cfg, nil
}
