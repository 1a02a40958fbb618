package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 流水线配置，从 YAML 文件加载，缺省值兜底。
type Config struct {
	// Provider 重写 API 供应商：tongyi 或 zhipu
	Provider string `yaml:"provider"`
	// Workers 为 0 时按机器资源自动估算
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"maxRetries"`
	RetryDelay time.Duration `yaml:"retryDelay"`

	InputDir  string `yaml:"inputDir"`
	OutputDir string `yaml:"outputDir"`

	Cache   CacheConfig   `yaml:"cache"`
	Queue   QueueConfig   `yaml:"queue"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

type CacheConfig struct {
	// Backend：file（CLI 默认）或 redis（服务端模式）
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redisAddr"`
	RedisDB   int    `yaml:"redisDB"`
}

type QueueConfig struct {
	RedisAddr   string `yaml:"redisAddr"`
	RedisDB     int    `yaml:"redisDB"`
	Concurrency int    `yaml:"concurrency"`
}

type StorageConfig struct {
	// Type：local、minio 或 s3
	Type string `yaml:"type"`
	// LocalDir 仅 local 类型使用
	LocalDir string `yaml:"localDir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default 返回全部缺省值的配置。
func Default() *Config {
	return &Config{
		Provider:   "tongyi",
		MaxRetries: 3,
		RetryDelay: time.Second,
		InputDir:   "input",
		OutputDir:  "output",
		Cache: CacheConfig{
			Backend:   "file",
			RedisAddr: "localhost:6379",
		},
		Queue: QueueConfig{
			RedisAddr:   "localhost:6379",
			Concurrency: 10,
		},
		Storage: StorageConfig{
			Type:     "local",
			LocalDir: "uploads",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load 读取 YAML 配置文件。文件不存在时返回缺省配置。
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Provider != "tongyi" && cfg.Provider != "zhipu" {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	return cfg, nil
}
