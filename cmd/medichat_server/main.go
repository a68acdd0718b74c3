package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medichat_server/internal/config"
	dao "medichat_server/internal/dao/mysql"
	myredis "medichat_server/internal/dao/redis"
	"medichat_server/internal/handler"
	"medichat_server/internal/https_server"
	"medichat_server/internal/infrastructure/logger"
	"medichat_server/internal/infrastructure/storage"
	"medichat_server/internal/service"
	"medichat_server/internal/service/chat"
	"medichat_server/pkg/util/jwt"
	"medichat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	// 1. 加载配置
	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")

	if err := handler.InitTrans("en"); err != nil {
		zap.L().Fatal("init validator translator failed", zap.Error(err))
	}

	// 3. JWT 和雪花算法
	jwt.Init(conf.Secret, conf.Issuer)
	snowflake.Init(conf.MachineID)

	// 4. 数据库
	repos, err := dao.Init(&conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化成功")

	// 5. Redis
	cache, err := myredis.Init(&conf.RedisConfig)
	if err != nil {
		zap.L().Fatal("Redis 初始化失败", zap.Error(err))
	}
	zap.L().Info("Redis 初始化成功")

	// 6. 附件存储
	uploader, err := storage.NewLocalUploader(conf.StaticFilePath, conf.PublicBaseURL, conf.MaxFileSize)
	if err != nil {
		zap.L().Fatal("附件存储初始化失败", zap.Error(err))
	}

	// 7. 实时网关
	broker, err := chat.NewBroker(conf)
	if err != nil {
		zap.L().Fatal("实时事件代理初始化失败", zap.Error(err), zap.String("mode", conf.BrokerMode))
	}
	gateway, err := chat.NewGateway(broker, chat.GatewayConfig{
		SendBufferSize: conf.SendBufferSize,
		PingInterval:   conf.PingInterval * time.Second,
		WriteTimeout:   conf.WriteTimeout * time.Second,
	})
	if err != nil {
		zap.L().Fatal("实时网关初始化失败", zap.Error(err))
	}
	zap.L().Info("实时网关初始化成功", zap.String("broker", conf.BrokerMode))

	// 8. Service / Handler / 路由
	svc := service.NewServices(service.Deps{
		Repos:    repos,
		Cache:    cache,
		Uploader: uploader,
		Gateway:  gateway,
	})
	handlers := handler.NewHandlers(svc,
		handler.HealthCheck{Name: "database", Check: repos.Ping},
		handler.HealthCheck{Name: "redis", Check: cache.Ping},
	)
	engine := https_server.Init(conf, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("http server shutdown", zap.Error(err))
	}
	// WebSocket 连接已被劫持，Shutdown 不会关闭它们
	if err := gateway.Close(); err != nil {
		zap.L().Error("gateway close", zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		zap.L().Error("redis close", zap.Error(err))
	}
	if err := repos.Close(); err != nil {
		zap.L().Error("database close", zap.Error(err))
	}
	zap.L().Info("服务器已关闭")
}
