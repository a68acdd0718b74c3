// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接
package handler

import (
	"medichat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WsHandler 实时网关入口
type WsHandler struct {
	gateway *chat.Gateway
}

func NewWsHandler(gateway *chat.Gateway) *WsHandler {
	return &WsHandler{gateway: gateway}
}

// Connect 升级为 WebSocket 连接
// GET /ws
// 身份由连接建立后的 userConnected / joinConversation 事件声明
func (h *WsHandler) Connect(c *gin.Context) {
	h.gateway.ServeWS(c.Writer, c.Request)
}
