// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"medichat_server/internal/config"
	"medichat_server/internal/handler"
	"medichat_server/internal/infrastructure/logger"
	"medichat_server/internal/infrastructure/middleware"
	"medichat_server/internal/infrastructure/storage"
	"medichat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 初始化 Gin 引擎
// 配置顺序：日志与恢复中间件 -> CORS -> 可选 TLS 重定向 -> 静态附件 -> 业务路由
func Init(conf *config.Config, handlers *handler.Handlers) *gin.Engine {
	if conf.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	// 不使用 gin.Default()，中间件全部显式注册
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	if conf.TLSConfig.Enable {
		engine.Use(middleware.TlsHandler(conf.SSLHost))
	}

	// 附件上限之外留 1MB 给表单其他字段
	engine.MaxMultipartMemory = conf.MaxFileSize + 1<<20
	engine.Static(storage.StaticRoute, conf.StaticFilePath)

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)
	return engine
}
