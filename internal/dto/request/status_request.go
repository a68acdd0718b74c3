package request

import "encoding/json"

// StatusUriRequest 查询在线状态
// 使用位置:
//   - internal/handler/status_handler.go: GetStatus
type StatusUriRequest struct {
	ContactId   string `uri:"contact_id" binding:"required"`
	ContactType string `uri:"contact_type" binding:"required"`
}

// UpdateStatusRequest 登录/登出时更新在线状态
// contact_id 兼容数字和数字字符串两种写法
type UpdateStatusRequest struct {
	ContactId   json.Number `json:"contact_id" binding:"required"`
	ContactType string      `json:"contact_type" binding:"required"`
	IsOnline    *bool       `json:"is_online" binding:"required"`
}
