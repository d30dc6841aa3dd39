// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（shell 注入或 .env.{env} 文件）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 公共配置 common.yaml
//  4. 代码硬编码默认值
//
// 凭据只从环境变量读取，YAML 中不存储任何密码或密钥。
//
// 配置路径确定策略：
//  1. SetConfigDir（对应命令行 -config 参数）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：prod → /etc/crowdtasks/，dev/test → ./configs/
package config

import (
	"time"

	"crowdtasks-admin/pkg/logging"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Storage     StorageConfig     `yaml:"storage"`     // 持久化存储
	Redis       RedisConfig       `yaml:"redis"`       // 注册锁（可选）
	MinIO       MinIOConfig       `yaml:"minio"`       // Run 产物归档（可选）
	Paths       PathsConfig       `yaml:"paths"`       // 数据与任务内容目录
	Marketplace MarketplaceConfig `yaml:"marketplace"` // 众包平台
	Log         logging.Config    `yaml:"log"`         // 日志
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver     string `yaml:"driver"`      // "sqlite"（默认）、"postgres" 或 "mongodb"
	SQLitePath string `yaml:"sqlite_path"` // SQLite 文件路径，为空时放在 data_dir 下
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"-"` // 只从 DB_PASSWORD 环境变量读取
	Database   string `yaml:"database"`
	SSLMode    string `yaml:"sslmode"`
	MongoURI   string `yaml:"mongo_uri"` // MongoDB 连接 URI
	MongoDB    string `yaml:"mongo_db"`  // MongoDB 数据库名
}

// RedisConfig Redis 配置，URL 为空时使用进程内锁
type RedisConfig struct {
	URL     string        `yaml:"url"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// MinIOConfig MinIO 对象存储配置，Endpoint 为空时不启用归档
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// PathsConfig 文件系统路径
type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`  // Run 产物根目录
	TasksDir string `yaml:"tasks_dir"` // 任务内容根目录，为空时为 data_dir/tasks
}

// MarketplaceConfig 众包平台配置
type MarketplaceConfig struct {
	AgeRangeQuestionID string `yaml:"age_range_question_id"`
	StudyURL           string `yaml:"study_url"` // 外部任务页面 URL 模板
	IDOption           string `yaml:"id_option"` // 参与者身份传递方式
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	Storage        StorageConfig
	DatabaseURL    string // 由 Storage 构建，DATABASE_URL 可直接覆盖
	RedisURL       string
	RedisLockTTL   time.Duration
	MinIO          MinIOConfig
	Paths          PathsConfig
	Marketplace    MarketplaceConfig
	Log            logging.Config
	ConfigFilePath string // 实际加载的 {env}.yaml 路径
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
