package model

import "time"

// ConversationSummary 最近会话列表中的一项，由消息和目录资料计算得出
type ConversationSummary struct {
	ConversationId     string
	Other              ParticipantProfile
	LastMessagePreview string
	LastMessageTime    time.Time
	LastSender         Participant
	LastAttachmentUrl  string
	LastRead           bool
	Unread             bool  // 最后一条由对方发送且未读
	UnreadCount        int64 // 该会话中发给自己的未读消息数
}

// SharedMedia 会话中共享的附件，附带对方的专科和简介
type SharedMedia struct {
	Media     []string
	Specialty string
	About     string
}
