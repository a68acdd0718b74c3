package respond

import (
	"time"

	"medichat_server/internal/model"
)

// MessageRespond 消息，HTTP 历史记录和实时 newMessage 事件共用
// message_id 以字符串输出，避免 JavaScript 精度丢失
type MessageRespond struct {
	MessageId      string  `json:"message_id"`
	ConversationId string  `json:"conversation_id"`
	SenderId       int64   `json:"sender_id"`
	SenderType     string  `json:"sender_type"`
	ReceiverId     int64   `json:"receiver_id"`
	ReceiverType   string  `json:"receiver_type"`
	Content        string  `json:"content"`
	FileUrl        *string `json:"file_url"`
	SentAt         string  `json:"sent_at"`
	Read           bool    `json:"read"`
}

// NewMessageRespond 转换消息模型
func NewMessageRespond(m *model.Message) MessageRespond {
	var fileUrl *string
	if m.AttachmentUrl != "" {
		u := m.AttachmentUrl
		fileUrl = &u
	}
	return MessageRespond{
		MessageId:      formatID(m.ID),
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		SenderType:     string(m.SenderType),
		ReceiverId:     m.ReceiverId,
		ReceiverType:   string(m.ReceiverType),
		Content:        m.Content,
		FileUrl:        fileUrl,
		SentAt:         m.SentAt.UTC().Format(time.RFC3339Nano),
		Read:           m.Read,
	}
}

// NewMessageListRespond 转换消息列表，空列表输出 []
func NewMessageListRespond(messages []model.Message) []MessageRespond {
	list := make([]MessageRespond, 0, len(messages))
	for i := range messages {
		list = append(list, NewMessageRespond(&messages[i]))
	}
	return list
}

// SendMessageRespond 发送消息响应
type SendMessageRespond struct {
	Success bool           `json:"success"`
	FileUrl *string        `json:"fileUrl"`
	Message MessageRespond `json:"message"`
}

// ConversationSummaryRespond 最近会话
type ConversationSummaryRespond struct {
	ConversationId  string `json:"conversation_id"`
	LastMessage     string `json:"last_message"`
	LastFileUrl     string `json:"last_file_url"`
	LastSender      int64  `json:"last_sender"`
	LastSenderType  string `json:"last_sender_type"`
	LastRead        bool   `json:"last_read"`
	LastMessageTime string `json:"last_message_time"`
	ContactId       int64  `json:"contact_id"`
	ContactType     string `json:"contact_type"`
	IsUnread        bool   `json:"isUnread"`
	UnreadCount     int64  `json:"unread_count"`
	Name            string `json:"name"`
	Image           string `json:"image"`
	Specialty       string `json:"specialty"`
}

// NewConversationSummaryListRespond 转换最近会话列表
func NewConversationSummaryListRespond(summaries []model.ConversationSummary) []ConversationSummaryRespond {
	list := make([]ConversationSummaryRespond, 0, len(summaries))
	for _, s := range summaries {
		list = append(list, ConversationSummaryRespond{
			ConversationId:  s.ConversationId,
			LastMessage:     s.LastMessagePreview,
			LastFileUrl:     s.LastAttachmentUrl,
			LastSender:      s.LastSender.ID,
			LastSenderType:  string(s.LastSender.Type),
			LastRead:        s.LastRead,
			LastMessageTime: s.LastMessageTime.UTC().Format(time.RFC3339Nano),
			ContactId:       s.Other.ID,
			ContactType:     string(s.Other.Type),
			IsUnread:        s.Unread,
			UnreadCount:     s.UnreadCount,
			Name:            s.Other.Name,
			Image:           s.Other.Image,
			Specialty:       s.Other.Specialty,
		})
	}
	return list
}

// ProfileRespond 搜索结果
type ProfileRespond struct {
	Id     int64  `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// NewProfileListRespond 转换搜索结果
func NewProfileListRespond(profiles []model.ParticipantProfile) []ProfileRespond {
	list := make([]ProfileRespond, 0, len(profiles))
	for _, p := range profiles {
		list = append(list, ProfileRespond{
			Id:     p.ID,
			Name:   p.Name,
			Image:  p.Image,
			Type:   string(p.Type),
			Detail: p.Specialty,
		})
	}
	return list
}

// SharedMediaRespond 会话中共享的图片，附带对方的专科和简介
type SharedMediaRespond struct {
	Media     []string `json:"media"`
	Specialty string   `json:"specialty"`
	About     string   `json:"about"`
}

// UnreadCountRespond 有未读消息的会话数
type UnreadCountRespond struct {
	UnreadCount int64 `json:"unreadCount"`
}
