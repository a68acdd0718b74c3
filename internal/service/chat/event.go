package chat

import (
	"encoding/json"

	"medichat_server/internal/dto/respond"
)

// 客户端 -> 服务端事件
const (
	EventUserConnected     = "userConnected"
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventUpdateUserStatus  = "updateUserStatus"
	EventUserOffline       = "userOffline"
)

// 服务端 -> 客户端事件
const (
	EventAck              = "ack"
	EventNewMessage       = "newMessage"
	EventGlobalMessage    = "globalMessage"
	EventUserStatusUpdate = "userStatusUpdate"
	EventUserOnline       = "userOnline"
	// EventUserOffline 与客户端事件同名
)

// ClientFrame 客户端发来的帧，ackId 原样回传
type ClientFrame struct {
	Event string          `json:"event"`
	AckId json.RawMessage `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// ServerFrame 服务端推送的帧
type ServerFrame struct {
	Event string          `json:"event"`
	AckId json.RawMessage `json:"ackId,omitempty"`
	Data  any             `json:"data"`
}

type identityPayload struct {
	UserId   json.Number `json:"userId"`
	UserType string      `json:"userType"`
}

type joinPayload struct {
	identityPayload
	OtherUserId   json.Number `json:"otherUserId"`
	OtherUserType string      `json:"otherUserType"`
}

type leavePayload struct {
	RoomId string `json:"roomId"`
}

type statusPayload struct {
	identityPayload
	IsOnline *bool `json:"isOnline"`
}

// AckPayload 请求-应答事件的回执
type AckPayload struct {
	Status string `json:"status"`
	Room   string `json:"room,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StatusUpdatePayload userStatusUpdate 事件
type StatusUpdatePayload struct {
	UserId   int64   `json:"userId"`
	UserType string  `json:"userType"`
	IsOnline bool    `json:"isOnline"`
	LastSeen *string `json:"lastSeen"`
}

// PresenceChangePayload userOnline / userOffline 事件
type PresenceChangePayload struct {
	UserId    int64  `json:"userId"`
	UserType  string `json:"userType"`
	Timestamp string `json:"timestamp"`
}

const (
	kindMessage  = "message"
	kindPresence = "presence"
)

// brokerEvent 经 Broker 在实例间传递的事件
type brokerEvent struct {
	Kind      string                  `json:"kind"`
	Message   *respond.MessageRespond `json:"message,omitempty"`
	Presence  *StatusUpdatePayload    `json:"presence,omitempty"`
	Timestamp string                  `json:"timestamp"`
}
