package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clipilot/clipilot/pkg/logger"
	"github.com/clipilot/clipilot/pkg/session"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database DatabaseConfig     `mapstructure:"database"`
	Storage  StorageConfig      `mapstructure:"storage"`
	SSH      SSHConfig          `mapstructure:"ssh"`
	Pool     session.PoolConfig `mapstructure:"pool"`
	Log      logger.Config      `mapstructure:"log"`
	Backup   BackupConfig       `mapstructure:"backup"`
	// Executor 批量执行配置
	Executor ExecutorConfig `mapstructure:"executor"`
	// DeviceDefaults 按平台覆盖的交互参数（时间缩放、超时、快速模式等）
	DeviceDefaults map[string]DeviceDefaultsConfig `mapstructure:"device_defaults"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig 备份数据存储配置
type StorageConfig struct {
	Minio MinioConfig `mapstructure:"minio"`
}

// MinioConfig 对象存储配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// SSHConfig SSH传输配置
type SSHConfig struct {
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	TermType          string        `mapstructure:"term_type"`
}

// BackupConfig 配置备份服务
type BackupConfig struct {
	// StorageBackend 存储后端：local | minio
	StorageBackend string `mapstructure:"storage_backend"`
	// Prefix 顶层保存目录前缀（与请求中的 save_dir 组合）
	Prefix string            `mapstructure:"prefix"`
	Local  LocalBackupConfig `mapstructure:"local"`
}

// LocalBackupConfig 本地存储配置
type LocalBackupConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// ExecutorConfig 批量执行配置
type ExecutorConfig struct {
	// Concurrent 同时推进的设备数
	Concurrent int `mapstructure:"concurrent"`
	// Retries 单设备失败后的重试次数
	Retries int `mapstructure:"retries"`
	// TaskTimeout 单设备任务的墙钟上限
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// DeviceDefaultsConfig 平台级交互参数覆盖
type DeviceDefaultsConfig struct {
	DelayFactor float64       `mapstructure:"delay_factor"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FastMode    bool          `mapstructure:"fast_mode"`
	ReturnChar  string        `mapstructure:"return_char"`
}

var globalConfig *Config

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("../configs")
		viper.AddConfigPath("../../configs")
	}

	viper.SetEnvPrefix("CLIPILOT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = replaceEnvVars(config)

	globalConfig = &config
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8600)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Minute)

	viper.SetDefault("database.sqlite.path", "./data/clipilot.db")
	viper.SetDefault("database.sqlite.max_idle_conns", 2)
	viper.SetDefault("database.sqlite.max_open_conns", 8)
	viper.SetDefault("database.sqlite.conn_max_lifetime", time.Hour)

	viper.SetDefault("ssh.connect_timeout", 10*time.Second)
	viper.SetDefault("ssh.keep_alive_interval", 30*time.Second)

	viper.SetDefault("pool.max_idle", 8)
	viper.SetDefault("pool.max_active", 64)
	viper.SetDefault("pool.idle_timeout", 5*time.Minute)

	viper.SetDefault("executor.concurrent", 8)
	viper.SetDefault("executor.retries", 1)
	viper.SetDefault("executor.task_timeout", 10*time.Minute)

	viper.SetDefault("backup.storage_backend", "local")
	viper.SetDefault("backup.prefix", "configs")
	viper.SetDefault("backup.local.base_dir", "./data/backups")
	viper.SetDefault("backup.local.mkdir_if_missing", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "console")
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// SessionOptions 按平台生成会话参数（device_defaults 覆盖默认值）
func (c *Config) SessionOptions(platform string) session.Options {
	opts := session.Options{}
	dd, ok := c.DeviceDefaults[platform]
	if !ok {
		dd, ok = c.DeviceDefaults["default"]
	}
	if ok {
		opts.DelayFactor = dd.DelayFactor
		opts.Timeout = dd.Timeout
		opts.FastMode = dd.FastMode
		opts.ReturnChar = dd.ReturnChar
	}
	return opts
}

// replaceEnvVars 替换配置中的 ${VAR} 引用（密钥类字段）
func replaceEnvVars(config Config) Config {
	config.Storage.Minio.AccessKey = expandEnv(config.Storage.Minio.AccessKey)
	config.Storage.Minio.SecretKey = expandEnv(config.Storage.Minio.SecretKey)
	return config
}

func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return v
}

// GetServerAddr 获取服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
