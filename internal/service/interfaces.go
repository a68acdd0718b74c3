// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层调用
package service

import (
	"context"
	"time"

	"medichat_server/internal/model"
	"medichat_server/internal/service/message"
)

// MessageService 消息业务接口
type MessageService interface {
	// Send 发送消息（文本和/或图片附件），返回已持久化的消息
	Send(ctx context.Context, sender, receiver model.Participant, content string, attachment *message.Attachment) (*model.Message, error)
	// History 获取与对方的消息记录，并把发给自己的消息标记为已读
	History(ctx context.Context, self, other model.Participant, since *time.Time) ([]model.Message, error)
	// Recent 最近会话列表
	Recent(ctx context.Context, self model.Participant) ([]model.ConversationSummary, error)
	// UnreadConversationCount 含未读消息的会话数
	UnreadConversationCount(ctx context.Context, self model.Participant) (int64, error)
	// Search 按姓名搜索医生和护士
	Search(ctx context.Context, term string, excluding model.Participant) ([]model.ParticipantProfile, error)
	// SharedMedia 会话中的共享附件
	SharedMedia(ctx context.Context, self, other model.Participant) (*model.SharedMedia, error)
}

// PresenceService 在线状态业务接口
type PresenceService interface {
	// SetStatus 设置在线状态并广播
	SetStatus(ctx context.Context, p model.Participant, online bool) (model.PresenceRecord, error)
	// GetStatus 查询在线状态
	GetStatus(ctx context.Context, p model.Participant) (model.PresenceRecord, error)
	// Connected 登录或实时连接握手，失败只记录日志
	Connected(ctx context.Context, p model.Participant)
	// Disconnected 登出或已绑定连接断开，失败只记录日志
	Disconnected(ctx context.Context, p model.Participant)
}
