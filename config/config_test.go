package config

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := FromEnv()
	req.NoError(err)
	req.Equal("8080", cfg.Port)
	req.Equal("debug", cfg.Mode)
	req.Equal("studygroup", cfg.JWTIssuer)
	req.Equal(10000, cfg.MaxConnections)
	req.Equal(60, cfg.RateLimitPerMinute)
	req.Equal(runtime.NumCPU()*10, cfg.RedisPoolSize)
	req.Equal([]string{"localhost:9092"}, cfg.KafkaBootstrapServers)
	req.False(cfg.DBEnabled)
	req.False(cfg.KafkaEnabled)
	req.False(cfg.RedisEnabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MODE", "release")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_POOL_SIZE", "7")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	req.NoError(err)
	req.Equal("9090", cfg.Port)
	req.Equal("release", cfg.Mode)
	req.True(cfg.KafkaEnabled)
	req.Equal([]string{"k1:9092", "k2:9092"}, cfg.KafkaBootstrapServers)
	req.Equal(7, cfg.RedisPoolSize)
	req.Equal("debug", cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"最大连接数非整数", "MAX_CONNECTIONS", "many"},
		{"运行模式无效", "MODE", "staging"},
		{"日志级别无效", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	req := require.New(t)

	level, err := ParseLogLevel("warn")
	req.NoError(err)
	req.Equal(slog.LevelWarn, level)

	level, err = ParseLogLevel(" ERROR ")
	req.NoError(err)
	req.Equal(slog.LevelError, level)

	_, err = ParseLogLevel("verbose")
	req.Error(err)
}
