// Package redis 提供 Redis 缓存操作的封装
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"strconv"
	"time"

	"medichat_server/internal/config"
	"medichat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 根据配置建立 Redis 连接并启动缓存 Worker Pool
func Init(conf *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Host + ":" + strconv.Itoa(conf.Port),
		Password: conf.Password,
		DB:       conf.Db,
		// 连接池配置
		PoolSize:     50,
		MinIdleConns: conf.Workers,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis ping %s:%d", conf.Host, conf.Port)
	}
	zap.L().Info("redis connected", zap.String("host", conf.Host), zap.Int("port", conf.Port), zap.Int("db", conf.Db))

	return NewRedisCache(client, conf.Workers, conf.TaskQueue), nil
}
