// Package router 提供 HTTP 路由注册
// 本文件定义消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息和在线状态路由（需要认证）
// 静态路径需先于 /:otherUserId/:otherUserType 注册
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	messageGroup := rg.Group("/messages")
	{
		messageGroup.POST("", rt.handlers.Message.Send)                                            // 发送消息（可带图片）
		messageGroup.GET("/recent", rt.handlers.Message.GetRecent)                                 // 最近会话
		messageGroup.GET("/search", rt.handlers.Message.Search)                                    // 搜索医护人员
		messageGroup.GET("/unread-count", rt.handlers.Message.GetUnreadCount)                      // 未读会话数
		messageGroup.GET("/media/:otherUserId/:otherUserType", rt.handlers.Message.GetSharedMedia) // 共享图片
		messageGroup.GET("/status/:contact_id/:contact_type", rt.handlers.Status.GetStatus)        // 查询在线状态
		messageGroup.POST("/status/update", rt.handlers.Status.UpdateStatus)                       // 更新在线状态
		messageGroup.GET("/:otherUserId/:otherUserType", rt.handlers.Message.GetConversation)      // 消息记录
	}
}
