package request

// SendMessageRequest 发送消息请求（multipart/form-data 或表单）
// 附件通过名为 file 的文件字段上传
// 使用位置:
//   - internal/handler/message_handler.go: SendMessage
type SendMessageRequest struct {
	ReceiverId   string `form:"receiverId" json:"receiverId" binding:"required"`
	ReceiverType string `form:"receiverType" json:"receiverType" binding:"required"`
	Content      string `form:"content" json:"content"`
}

// ConversationUriRequest 路由中的对方参与者
// 使用位置:
//   - internal/handler/message_handler.go: GetConversation, GetSharedMedia
type ConversationUriRequest struct {
	OtherUserId   string `uri:"otherUserId" binding:"required"`
	OtherUserType string `uri:"otherUserType" binding:"required"`
}

// ConversationQueryRequest 历史记录的增量拉取参数，Since 为 RFC3339 时间
type ConversationQueryRequest struct {
	Since string `form:"since"`
}

// SearchRequest 按姓名搜索医护人员
type SearchRequest struct {
	Q string `form:"q"`
}
