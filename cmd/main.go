package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/studyhub-io/studyhub/config"
	"github.com/studyhub-io/studyhub/internal/consumer"
	"github.com/studyhub-io/studyhub/internal/handlers"
	"github.com/studyhub-io/studyhub/internal/repositories"
	"github.com/studyhub-io/studyhub/internal/routers"
	"github.com/studyhub-io/studyhub/internal/services"
	"github.com/studyhub-io/studyhub/internal/storage"
	"github.com/studyhub-io/studyhub/middleware/jwt"
	log "github.com/studyhub-io/studyhub/middleware/log"
	"github.com/studyhub-io/studyhub/pkg/filestore"
	"github.com/studyhub-io/studyhub/pkg/middlewares"
	"github.com/studyhub-io/studyhub/pkg/mq"
	"github.com/studyhub-io/studyhub/pkg/utils"
	"github.com/studyhub-io/studyhub/pkg/ws"
	"github.com/studyhub-io/studyhub/utils/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置初始化失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// 初始化全局限流器与 Worker Pool
	middlewares.InitGlobalLimiter(cfg.RateLimit.Burst, cfg.RateLimit.QPS)
	utils.InitGlobalWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		logger.Fatal("postgres 初始化失败", zap.Error(err))
	}

	// 初始化 Redis（可选，失败时 Hub 只做单实例广播）
	redisClient, err := storage.InitRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	if err != nil {
		logger.Warn("redis 初始化失败，跨实例广播不可用", zap.Error(err))
		redisClient = nil
	}

	// 雪花 ID 生成器，WorkerID 区分多实例
	idGen, err := snowflake.NewGenerator(snowflake.Config{WorkerID: cfg.Snowflake.WorkerID})
	if err != nil {
		logger.Fatal("雪花生成器初始化失败", zap.Error(err))
	}

	// 文件存储
	store, err := filestore.NewDiskStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatal("文件存储初始化失败", zap.Error(err))
	}

	tokens := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)

	// 仓储层
	userRepo := repositories.NewUserRepository(postgres)
	groupRepo := repositories.NewGroupRepository(postgres)
	messageRepo := repositories.NewMessageRepository(postgres)
	notificationRepo := repositories.NewNotificationRepository(postgres)

	// WebSocket Hub
	nodeID := "node-" + strconv.FormatInt(cfg.Snowflake.WorkerID, 10)
	hub := ws.NewHub(redisClient, nodeID, logger)
	go hub.Run()

	// 服务层
	authService := services.NewAuthService(userRepo, tokens)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, logger)
	groupService := services.NewGroupService(groupRepo, userRepo, notificationService)
	messageService := services.NewMessageService(messageRepo, groupRepo, userRepo, idGen, hub)

	// Kafka（可选，失败时网关直接写 Service）
	var kafkaProducer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Kafka 生产者初始化失败，系统将以降级模式运行", zap.Error(err))
			kafkaProducer = nil
		} else {
			defer kafkaProducer.Close()

			msgConsumer := consumer.NewMessageConsumer(messageService, logger)
			if err := consumer.StartConsumer(context.Background(), cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, msgConsumer); err != nil {
				logger.Warn("Kafka 消费者启动失败", zap.Error(err))
			}
		}
	}

	// 处理器
	authHandler := handlers.NewAuthHandler(authService)
	groupHandler := handlers.NewGroupHandler(groupService)
	messageHandler := handlers.NewMessageHandler(messageService)
	fileHandler := handlers.NewFileHandler(messageService, store, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 并发上限控制，防止 Goroutine 暴涨
	if cfg.RateLimit.MaxConcurrency > 0 {
		r.Use(middlewares.MaxConcurrencyMiddleware(cfg.RateLimit.MaxConcurrency))
	}

	routers.SetupRoutes(r,
		tokens,
		authHandler,
		groupHandler,
		messageHandler,
		fileHandler,
		notificationHandler,
		hub,
		authService,
		groupService,
		messageService,
		kafkaProducer,
		logger,
	)

	logger.Info("正在启动服务器", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		logger.Fatal("启动服务器失败", zap.Error(err))
	}
}
