package repository

import (
	"context"
	"time"

	"medichat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 conversation_id=%s", message.ConversationId)
	}
	return nil
}

// FindByConversation 按会话ID查找消息
func (r *messageRepository) FindByConversation(ctx context.Context, conversationId string, since *time.Time) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId)
	if since != nil {
		query = query.Where("sent_at > ?", since.UTC())
	}
	if err := query.Order("sent_at ASC").Order("id ASC").Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 conversation_id=%s", conversationId)
	}
	return messages, nil
}

// MarkRead 标记已读
// 只更新快照范围内（id <= upToId）的消息，快照之后到达的消息保持未读
func (r *messageRepository) MarkRead(ctx context.Context, conversationId string, receiver model.Participant, upToId int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND receiver_type = ? AND receiver_id = ? AND is_read = ? AND id <= ?",
			conversationId, receiver.Type, receiver.ID, false, upToId).
		Update("is_read", true)
	if result.Error != nil {
		return 0, wrapDBErrorf(result.Error, "标记已读 conversation_id=%s receiver=%s", conversationId, receiver)
	}
	return result.RowsAffected, nil
}

// FindLatestPerConversation 每个会话只取最新一条消息（双向）
func (r *messageRepository) FindLatestPerConversation(ctx context.Context, p model.Participant) ([]model.Message, error) {
	ranked := r.db.Model(&model.Message{}).
		Select("id, ROW_NUMBER() OVER (PARTITION BY conversation_id ORDER BY sent_at DESC, id DESC) AS rn").
		Where("(sender_type = ? AND sender_id = ?) OR (receiver_type = ? AND receiver_id = ?)",
			p.Type, p.ID, p.Type, p.ID)
	latestIds := r.db.Table("(?) AS ranked", ranked).Select("id").Where("rn = 1")

	var messages []model.Message
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", latestIds).
		Order("sent_at DESC").Order("id DESC").
		Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询最近会话 participant=%s", p)
	}
	return messages, nil
}

type conversationCount struct {
	ConversationId string
	Total          int64
}

// CountUnreadByConversation 按会话统计未读数
func (r *messageRepository) CountUnreadByConversation(ctx context.Context, receiver model.Participant) (map[string]int64, error) {
	var rows []conversationCount
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS total").
		Where("receiver_type = ? AND receiver_id = ? AND is_read = ?", receiver.Type, receiver.ID, false).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, wrapDBErrorf(err, "统计未读 receiver=%s", receiver)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationId] = row.Total
	}
	return counts, nil
}

// CountUnreadConversations 统计有未读消息的会话数
func (r *messageRepository) CountUnreadConversations(ctx context.Context, receiver model.Participant) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_type = ? AND receiver_id = ? AND is_read = ?", receiver.Type, receiver.ID, false).
		Distinct("conversation_id").
		Count(&total).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计未读会话 receiver=%s", receiver)
	}
	return total, nil
}

// FindAttachmentUrls 查询会话中共享的附件
func (r *messageRepository) FindAttachmentUrls(ctx context.Context, conversationId string) ([]string, error) {
	var urls []string
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND attachment_url IS NOT NULL AND attachment_url <> ?", conversationId, "").
		Order("sent_at DESC").Order("id DESC").
		Pluck("attachment_url", &urls).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询共享附件 conversation_id=%s", conversationId)
	}
	return urls, nil
}
