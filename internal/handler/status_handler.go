package handler

import (
	"medichat_server/internal/dto/request"
	"medichat_server/internal/dto/respond"
	"medichat_server/internal/model"
	"medichat_server/internal/service"
	"medichat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// StatusHandler 在线状态请求处理器
type StatusHandler struct {
	presenceSvc service.PresenceService
}

func NewStatusHandler(presenceSvc service.PresenceService) *StatusHandler {
	return &StatusHandler{presenceSvc: presenceSvc}
}

// GetStatus 查询参与者在线状态
// GET /messages/status/:contact_id/:contact_type
func (h *StatusHandler) GetStatus(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	var uri request.StatusUriRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		HandleParamError(c, err)
		return
	}
	p, err := model.ParseParticipant(uri.ContactId, uri.ContactType)
	if err != nil {
		HandleError(c, err)
		return
	}
	rec, err := h.presenceSvc.GetStatus(c.Request.Context(), p)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewStatusRespond(rec))
}

// UpdateStatus 客户端登录/登出时更新自己的在线状态
// POST /messages/status/update
// 只能更新调用者本人
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	var req request.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	p, err := model.ParseParticipant(req.ContactId.String(), req.ContactType)
	if err != nil {
		HandleError(c, err)
		return
	}
	if p != self {
		HandleError(c, errorx.New(errorx.CodeUnauthorized, "cannot update another participant's status"))
		return
	}
	if _, err := h.presenceSvc.SetStatus(c.Request.Context(), p, *req.IsOnline); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.UpdateStatusRespond{Success: true, Message: "Status updated"})
}
