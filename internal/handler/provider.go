// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"medichat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Message *MessageHandler
	Status  *StatusHandler
	Ws      *WsHandler
	Health  *HealthHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, checks ...HealthCheck) *Handlers {
	return &Handlers{
		Message: NewMessageHandler(svc.Message),
		Status:  NewStatusHandler(svc.Presence),
		Ws:      NewWsHandler(svc.Gateway),
		Health:  NewHealthHandler(checks...),
	}
}
