package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务运行配置（配置文件 + 环境变量合并后的最终结果）
type Config struct {
	// ListenAddr HTTP API 监听地址
	ListenAddr string
	// MetricsAddr expvar/pprof 调试端口（为空则不启动）
	MetricsAddr string
	// DBPath SQLite 模型库文件路径
	DBPath string
	// TableCacheDir Badger 表缓存目录（为空则禁用表缓存）
	TableCacheDir string
	// DefaultTerms CDF 级数默认截断项数
	DefaultTerms int
	// EvalCacheTTL 点求值内存缓存的 TTL
	EvalCacheTTL time.Duration
	// StreamInterval 随机抽样流的默认推送间隔
	StreamInterval time.Duration
	// Log 日志配置
	Log LogConfig
}

// LogConfig 日志配置（映射到 pkg/logger）
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// configFile YAML 配置文件的结构
type configFile struct {
	Server struct {
		Listen  string `yaml:"listen"`
		Metrics string `yaml:"metrics"`
	} `yaml:"server"`
	Storage struct {
		DBPath        string `yaml:"db_path"`
		TableCacheDir string `yaml:"table_cache_dir"`
	} `yaml:"storage"`
	Eval struct {
		DefaultTerms     int `yaml:"default_terms"`
		CacheTTLSeconds  int `yaml:"cache_ttl_seconds"`
		StreamIntervalMS int `yaml:"stream_interval_ms"`
	} `yaml:"eval"`
	Log LogConfig `yaml:"log"`
}

// Load 加载配置。filePath 为空时只用环境变量 + 默认值。
// 优先级：配置文件 > 环境变量 > 默认值。
func Load(filePath string) (*Config, error) {
	var cf *configFile
	if filePath != "" {
		loaded, err := loadConfigFile(filePath)
		if err != nil {
			return nil, err
		}
		cf = loaded
	}

	cfg := &Config{
		ListenAddr:     getEnv("GOSTAT_LISTEN", ":8080"),
		MetricsAddr:    getEnv("GOSTAT_METRICS_LISTEN", ""),
		DBPath:         getEnv("GOSTAT_DB", "data/models.db"),
		TableCacheDir:  getEnv("GOSTAT_TABLE_CACHE_DIR", "data/tablecache"),
		DefaultTerms:   parseIntEnv("GOSTAT_DEFAULT_TERMS", 100),
		EvalCacheTTL:   time.Duration(parseIntEnv("GOSTAT_EVAL_CACHE_TTL_SECONDS", 300)) * time.Second,
		StreamInterval: time.Duration(parseIntEnv("GOSTAT_STREAM_INTERVAL_MS", 200)) * time.Millisecond,
		Log: LogConfig{
			Level:      getEnv("GOSTAT_LOG_LEVEL", "info"),
			File:       getEnv("GOSTAT_LOG_FILE", ""),
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}

	// 配置文件覆盖环境变量
	if cf != nil {
		if cf.Server.Listen != "" {
			cfg.ListenAddr = cf.Server.Listen
		}
		if cf.Server.Metrics != "" {
			cfg.MetricsAddr = cf.Server.Metrics
		}
		if cf.Storage.DBPath != "" {
			cfg.DBPath = cf.Storage.DBPath
		}
		if cf.Storage.TableCacheDir != "" {
			cfg.TableCacheDir = cf.Storage.TableCacheDir
		}
		if cf.Eval.DefaultTerms > 0 {
			cfg.DefaultTerms = cf.Eval.DefaultTerms
		}
		if cf.Eval.CacheTTLSeconds > 0 {
			cfg.EvalCacheTTL = time.Duration(cf.Eval.CacheTTLSeconds) * time.Second
		}
		if cf.Eval.StreamIntervalMS > 0 {
			cfg.StreamInterval = time.Duration(cf.Eval.StreamIntervalMS) * time.Millisecond
		}
		if cf.Log.Level != "" {
			cfg.Log.Level = cf.Log.Level
		}
		if cf.Log.File != "" {
			cfg.Log.File = cf.Log.File
		}
		if cf.Log.MaxSizeMB > 0 {
			cfg.Log.MaxSizeMB = cf.Log.MaxSizeMB
		}
		if cf.Log.MaxBackups > 0 {
			cfg.Log.MaxBackups = cf.Log.MaxBackups
		}
		if cf.Log.MaxAgeDays > 0 {
			cfg.Log.MaxAgeDays = cf.Log.MaxAgeDays
		}
		if cf.Log.Compress {
			cfg.Log.Compress = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// loadConfigFile 加载 YAML 配置文件
func loadConfigFile(filePath string) (*configFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml)", ext)
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
	}
	return &cf, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	if c.DefaultTerms < 0 {
		return fmt.Errorf("default_terms must be >= 0, got %d", c.DefaultTerms)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("stream interval must be > 0, got %v", c.StreamInterval)
	}
	return nil
}

// getEnv 获取环境变量，不存在时返回默认值
func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
