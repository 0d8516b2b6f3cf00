package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studygroup/api"
	"studygroup/config"
	"studygroup/middleware"
	"studygroup/services"
	"studygroup/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("服务异常退出", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	log := slog.Default().With("component", "main")

	// 持久化（可选）
	var repo services.StateRepository
	if cfg.DBEnabled {
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("获取数据库连接池失败: %w", err)
		}
		defer sqlDB.Close()

		stateRepo := services.NewStateRepository(db)
		if err := stateRepo.Migrate(); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
		repo = stateRepo
		log.Info("数据库连接成功")
	}

	// Kafka事件发布（可选，允许失败）
	var publisher services.EventPublisher
	var kafkaMetrics api.MetricsProvider
	if cfg.KafkaEnabled {
		kafkaService, err := services.NewKafkaService(cfg.KafkaBootstrapServers, cfg.KafkaTopicPrefix)
		if err != nil {
			log.Warn("Kafka服务初始化失败，群组事件不会发布到队列", "error", err)
		} else {
			defer kafkaService.Close()
			publisher = kafkaService
			kafkaMetrics = kafkaService
		}
	}

	// WebSocket管理器
	wsManager := services.NewWebSocketManager(cfg.MaxConnections)
	defer wsManager.Stop()

	groupService := services.NewGroupService(store.New(), repo, publisher, wsManager)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := groupService.Restore(ctx); err != nil {
		return fmt.Errorf("恢复群组状态失败: %w", err)
	}

	// 创建Gin实例
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(slog.Default().With("component", "http")))

	// 配置CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
	}))

	// 限流（可选）
	if cfg.RedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis连接失败，限流将放行所有请求", "error", err)
		} else {
			log.Info("Redis连接成功")
		}
		r.Use(middleware.RateLimiter(rdb, cfg.RateLimitPerMinute))
	}

	// 使用JWT中间件
	r.Use(middleware.JWTAuth([]byte(cfg.JWTSecret), cfg.JWTIssuer))

	// 注册路由
	api.RegisterRoutes(r, api.Dependencies{
		GroupService: groupService,
		WSManager:    wsManager,
		Kafka:        kafkaMetrics,
		BufferSize:   cfg.ChannelBufferSize,
	})

	srv, serveErr := services.StartServer(r, cfg.Port)

	// 等待中断信号以优雅地关闭服务器
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	log.Info("服务器已优雅关闭")
	return nil
}

// openDatabase 连接数据库并配置连接池
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DBConnectionString), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true, // 缓存预编译语句
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
