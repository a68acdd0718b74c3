// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"medichat_server/internal/handler"
	"medichat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有注入的 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// /healthz 和 /ws 不需要 JWT；/messages 下全部需要
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", rt.handlers.Health.Healthz)
	rt.RegisterWebSocketRoutes(&r.RouterGroup)

	authed := r.Group("")
	authed.Use(middleware.JWTAuth())
	rt.RegisterMessageRoutes(authed)
}
