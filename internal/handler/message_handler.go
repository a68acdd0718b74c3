// Package handler 提供 HTTP 请求处理器
// 本文件处理消息相关的 API 请求
package handler

import (
	"errors"
	"net/http"
	"time"

	"medichat_server/internal/dto/request"
	"medichat_server/internal/dto/respond"
	"medichat_server/internal/infrastructure/middleware"
	"medichat_server/internal/model"
	"medichat_server/internal/service"
	"medichat_server/internal/service/message"
	"medichat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	messageSvc service.MessageService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// identity 取出 JWT 中间件解析的身份
func identity(c *gin.Context) (model.Participant, bool) {
	self, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleError(c, errorx.ErrUnauthorized)
	}
	return self, ok
}

// Send 发送消息
// POST /messages
// 表单: receiverId, receiverType, content，可选文件字段 file
// 响应: 201 respond.SendMessageRespond
func (h *MessageHandler) Send(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	var req request.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	receiver, err := model.ParseParticipant(req.ReceiverId, req.ReceiverType)
	if err != nil {
		HandleError(c, err)
		return
	}

	var attachment *message.Attachment
	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			HandleError(c, errorx.Wrap(err, errorx.CodeUploadFailed, "open uploaded file"))
			return
		}
		defer file.Close()
		attachment = &message.Attachment{FileName: fileHeader.Filename, Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// 纯文本消息
	default:
		HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid multipart body"))
		return
	}

	msg, err := h.messageSvc.Send(c.Request.Context(), self, receiver, req.Content, attachment)
	if err != nil {
		HandleError(c, err)
		return
	}
	data := respond.SendMessageRespond{Success: true, Message: respond.NewMessageRespond(msg)}
	data.FileUrl = data.Message.FileUrl
	HandleCreated(c, data)
}

// GetConversation 获取与对方的消息记录，并把发给自己的消息标记为已读
// GET /messages/:otherUserId/:otherUserType?since=RFC3339
func (h *MessageHandler) GetConversation(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	other, ok := bindOther(c)
	if !ok {
		return
	}
	var query request.ConversationQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		HandleParamError(c, err)
		return
	}
	var since *time.Time
	if query.Since != "" {
		t, err := time.Parse(time.RFC3339Nano, query.Since)
		if err != nil {
			HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "since must be an RFC3339 timestamp"))
			return
		}
		since = &t
	}

	messages, err := h.messageSvc.History(c.Request.Context(), self, other, since)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewMessageListRespond(messages))
}

// GetRecent 最近会话列表
// GET /messages/recent
func (h *MessageHandler) GetRecent(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	summaries, err := h.messageSvc.Recent(c.Request.Context(), self)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationSummaryListRespond(summaries))
}

// Search 按姓名搜索医生和护士
// GET /messages/search?q=
func (h *MessageHandler) Search(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	var req request.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	profiles, err := h.messageSvc.Search(c.Request.Context(), req.Q, self)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewProfileListRespond(profiles))
}

// GetSharedMedia 会话中的共享图片
// GET /messages/media/:otherUserId/:otherUserType
func (h *MessageHandler) GetSharedMedia(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	other, ok := bindOther(c)
	if !ok {
		return
	}
	media, err := h.messageSvc.SharedMedia(c.Request.Context(), self, other)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.SharedMediaRespond{
		Media:     media.Media,
		Specialty: media.Specialty,
		About:     media.About,
	})
}

// GetUnreadCount 含未读消息的会话数
// GET /messages/unread-count
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	self, ok := identity(c)
	if !ok {
		return
	}
	count, err := h.messageSvc.UnreadConversationCount(c.Request.Context(), self)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.UnreadCountRespond{UnreadCount: count})
}

func bindOther(c *gin.Context) (model.Participant, bool) {
	var uri request.ConversationUriRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		HandleParamError(c, err)
		return model.Participant{}, false
	}
	other, err := model.ParseParticipant(uri.OtherUserId, uri.OtherUserType)
	if err != nil {
		HandleError(c, err)
		return model.Participant{}, false
	}
	return other, true
}
