// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"strings"
	"time"

	"medichat_server/pkg/constants"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName string `toml:"appName"` // 应用名称，用于日志标识等
	Host    string `toml:"host"`    // 服务器监听地址，如 "0.0.0.0"
	Port    int    `toml:"port"`    // 服务器监听端口，如 8000
	Mode    string `toml:"mode"`    // 运行模式："dev" 或 "release"
}

// DatabaseConfig 关系数据库连接配置
// 消息表由本服务维护，医生/护士目录表由外部 CRUD 系统维护，本服务只读
type DatabaseConfig struct {
	Driver       string `toml:"driver"`       // "mysql" 或 "postgres"
	Host         string `toml:"host"`         // 数据库服务器地址
	Port         int    `toml:"port"`         // 端口
	User         string `toml:"user"`         // 用户名
	Password     string `toml:"password"`     // 密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	SSLMode      string `toml:"sslMode"`      // 仅 postgres 使用
	AutoMigrate  bool   `toml:"autoMigrate"`  // 启动时是否自动迁移表结构
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host      string `toml:"host"`      // Redis 服务器地址
	Port      int    `toml:"port"`      // Redis 端口，默认 6379
	Password  string `toml:"password"`  // Redis 密码，无密码留空
	Db        int    `toml:"db"`        // Redis 数据库编号，默认 0
	Workers   int    `toml:"workers"`   // 异步缓存任务协程数
	TaskQueue int    `toml:"taskQueue"` // 异步缓存任务缓冲区大小
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// RealtimeConfig 实时网关配置
type RealtimeConfig struct {
	BrokerMode     string        `toml:"brokerMode"`     // "standalone"、"kafka" 或 "nats"
	SendBufferSize int           `toml:"sendBufferSize"` // 每个连接的出站缓冲
	PingInterval   time.Duration `toml:"pingInterval"`   // ping 帧间隔（秒）
	WriteTimeout   time.Duration `toml:"writeTimeout"`   // 单次写超时（秒）
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	HostPort string        `toml:"hostPort"` // Kafka 服务器地址，如 "localhost:9092"
	Topic    string        `toml:"topic"`    // 实时事件主题
	Timeout  time.Duration `toml:"timeout"`  // 超时时间（秒）
}

// NatsConfig NATS 配置
type NatsConfig struct {
	URL           string        `toml:"url"`           // 如 "nats://127.0.0.1:4222"
	Subject       string        `toml:"subject"`       // 实时事件主题
	MaxReconnects int           `toml:"maxReconnects"` // 最大重连次数
	ReconnectWait time.Duration `toml:"reconnectWait"` // 重连间隔（秒）
}

// StaticSrcConfig 附件存储配置
type StaticSrcConfig struct {
	StaticFilePath string `toml:"staticFilePath"` // 附件文件存储路径
	PublicBaseURL  string `toml:"publicBaseURL"`  // 对外访问前缀，如 "https://chat.example.org"
	MaxFileSize    int64  `toml:"maxFileSize"`    // 附件最大字节数
}

// JWTConfig JWT 认证配置
// Token 由外部认证系统签发，本服务只校验
type JWTConfig struct {
	Secret string `toml:"secret"` // JWT 签名密钥
	Issuer string `toml:"issuer"` // 期望的签发者，留空不校验
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// TLSConfig HTTPS 重定向配置
type TLSConfig struct {
	Enable  bool   `toml:"enable"`
	SSLHost string `toml:"sslHost"`
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	DatabaseConfig  `toml:"databaseConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	RealtimeConfig  `toml:"realtimeConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	NatsConfig      `toml:"natsConfig"`
	StaticSrcConfig `toml:"staticSrcConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	TLSConfig       `toml:"tlsConfig"`
}

// config 全局配置单例，延迟加载
// candidatePaths 候选配置文件路径（优先加载本地配置）
var candidatePaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml", // 从子目录运行时的路径
	"../../configs/config.toml",
}

// Load 从指定路径加载配置；path 为空时依次尝试候选路径
// 找不到任何配置文件时返回错误，但仍返回填充了默认值的配置
func Load(path string) (*Config, error) {
	conf := new(Config)
	paths := candidatePaths
	if path != "" {
		paths = []string{path}
	}

	var lastErr error
	loaded := false
	for _, p := range paths {
		if _, err := toml.DecodeFile(p, conf); err != nil {
			lastErr = err
			continue
		}
		loaded = true
		break
	}
	conf.applyDefaults()
	if !loaded {
		return conf, fmt.Errorf("could not load configuration from %s: %w", strings.Join(paths, ", "), lastErr)
	}
	return conf, nil
}

// applyDefaults 为未配置的字段填充默认值
func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "medichat"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.TaskQueue == 0 {
		c.TaskQueue = 1024
	}
	if c.BrokerMode == "" {
		c.BrokerMode = "standalone"
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = constants.CHANNEL_SIZE
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10
	}
	if c.KafkaConfig.Topic == "" {
		c.KafkaConfig.Topic = "medichat_realtime"
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.NatsConfig.Subject == "" {
		c.NatsConfig.Subject = constants.REALTIME_EVENT_SUBJECT
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2
	}
	if c.StaticFilePath == "" {
		c.StaticFilePath = "./static/files"
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = constants.FILE_MAX_SIZE
	}
}
