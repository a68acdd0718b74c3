// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"medichat_server/internal/dao/mysql/repository"
	myredis "medichat_server/internal/dao/redis"
	"medichat_server/internal/infrastructure/storage"
	"medichat_server/internal/service/chat"
	"medichat_server/internal/service/message"
	"medichat_server/internal/service/presence"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过它访问各个 Service
type Services struct {
	Message  MessageService
	Presence PresenceService
	Gateway  *chat.Gateway
}

// Deps 构造 Services 所需的基础设施
type Deps struct {
	Repos    *repository.Repositories
	Cache    *myredis.RedisCache
	Uploader storage.Uploader
	Gateway  *chat.Gateway
}

// NewServices 创建并注入所有 Service 实例
// 在线状态服务和网关互相依赖：网关作为状态广播通道注入在线状态服务，
// 在线状态服务再回注到网关，用于连接握手和断开
func NewServices(deps Deps) *Services {
	presenceSvc := presence.NewPresenceService(
		myredis.NewPresenceStore(deps.Cache),
		deps.Repos.Directory,
		deps.Gateway,
	)
	deps.Gateway.SetPresenceTracker(presenceSvc)

	var cache myredis.AsyncCacheService
	if deps.Cache != nil {
		cache = deps.Cache
	}
	messageSvc := message.NewMessageService(deps.Repos, deps.Uploader, cache, deps.Gateway)

	return &Services{
		Message:  messageSvc,
		Presence: presenceSvc,
		Gateway:  deps.Gateway,
	}
}
