package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 应用配置
type Config struct {
	// 服务器配置
	Port           string `envconfig:"PORT" default:"8080"`
	Mode           string `envconfig:"MODE" default:"debug"` // debug 或 release
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"your-secret-key"`
	JWTIssuer      string `envconfig:"JWT_ISSUER" default:"studygroup"`
	MaxConnections int    `envconfig:"MAX_CONNECTIONS" default:"10000"` // 最大WebSocket连接数

	// Redis配置（仅用于限流）
	RedisEnabled       bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddr          string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`
	RedisPoolSize      int    `envconfig:"REDIS_POOL_SIZE"` // 0 表示 CPU 数 * 10
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// Kafka配置（用于发布群组事件）
	KafkaEnabled          bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBootstrapServers []string `envconfig:"KAFKA_BOOTSTRAP_SERVERS" default:"localhost:9092"`
	KafkaTopicPrefix      string   `envconfig:"KAFKA_TOPIC_PREFIX" default:"studygroup-"`

	// 数据库配置
	DBEnabled          bool   `envconfig:"DB_ENABLED" default:"false"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" default:"root:password@tcp(127.0.0.1:3306)/studygroup?charset=utf8mb4&parseTime=True&loc=Local"`
	DBMaxIdleConns     int    `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBMaxOpenConns     int    `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`

	// WebSocket 客户端发送缓冲
	ChannelBufferSize int `envconfig:"CHANNEL_BUFFER_SIZE" default:"256"`
}

// LoadConfig 从 .env 文件和环境变量加载配置
func LoadConfig() (Config, error) {
	// 尝试加载.env文件
	if err := godotenv.Load(); err != nil {
		slog.Info("未找到.env文件，将使用环境变量")
	}
	return FromEnv()
}

// FromEnv 只从环境变量解析配置
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.RedisPoolSize <= 0 {
		cfg.RedisPoolSize = runtime.NumCPU() * 10
	}
	if cfg.Mode != "debug" && cfg.Mode != "release" {
		return Config{}, fmt.Errorf("无效的运行模式: %q", cfg.Mode)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseLogLevel 解析日志级别
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("无效的日志级别 %q: %w", level, err)
	}
	return l, nil
}
