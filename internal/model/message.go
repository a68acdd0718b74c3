// Package model 定义数据库实体模型
// 本文件定义消息模型，用于存储医护人员之间的聊天消息
package model

import (
	"time"
)

// Message 消息模型
// 对应数据库 message 表，除 Read 外写入后不再修改
type Message struct {
	// ID 雪花算法生成，sent_at 相同时按 ID 排序即为到达顺序
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false;type:bigint;comment:消息雪花ID"`

	// ConversationId 由 DeriveConversationId 计算，如 DOCTOR_7-NURSE_3
	ConversationId string `gorm:"column:conversation_id;index:idx_conversation_sent,priority:1;type:varchar(64);not null;comment:会话ID"`

	SenderType   ParticipantType `gorm:"column:sender_type;type:varchar(10);not null;comment:发送者类型"`
	SenderId     int64           `gorm:"column:sender_id;not null;comment:发送者ID"`
	ReceiverType ParticipantType `gorm:"column:receiver_type;index:idx_receiver_read,priority:1;type:varchar(10);not null;comment:接收者类型"`
	ReceiverId   int64           `gorm:"column:receiver_id;index:idx_receiver_read,priority:2;not null;comment:接收者ID"`

	// Content 文本内容，纯图片消息为空
	Content string `gorm:"column:content;type:TEXT;comment:消息内容"`

	// AttachmentUrl 附件上传成功后得到的持久 URL
	AttachmentUrl string `gorm:"column:attachment_url;type:varchar(512);comment:附件url"`

	// SentAt 服务端分配的 UTC 时间
	SentAt time.Time `gorm:"column:sent_at;index:idx_conversation_sent,priority:2;not null;comment:发送时间"`

	Read bool `gorm:"column:is_read;index:idx_receiver_read,priority:3;not null;default:false;comment:是否已读"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// Sender 发送者
func (m *Message) Sender() Participant {
	return Participant{Type: m.SenderType, ID: m.SenderId}
}

// Receiver 接收者
func (m *Message) Receiver() Participant {
	return Participant{Type: m.ReceiverType, ID: m.ReceiverId}
}
