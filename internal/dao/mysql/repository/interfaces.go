// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"context"
	"time"

	"medichat_server/internal/model"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 写入一条消息
	Create(ctx context.Context, message *model.Message) error
	// FindByConversation 按 (sent_at, id) 升序返回会话消息；since 非空时只返回其后的消息
	FindByConversation(ctx context.Context, conversationId string, since *time.Time) ([]model.Message, error)
	// MarkRead 把会话中发给 receiver、ID 不大于 upToId 的未读消息标记为已读，返回更新条数
	MarkRead(ctx context.Context, conversationId string, receiver model.Participant, upToId int64) (int64, error)
	// FindLatestPerConversation 返回参与者每个会话的最新一条消息，按 (sent_at, id) 降序
	FindLatestPerConversation(ctx context.Context, p model.Participant) ([]model.Message, error)
	// CountUnreadByConversation 统计每个会话中发给 receiver 的未读消息数
	CountUnreadByConversation(ctx context.Context, receiver model.Participant) (map[string]int64, error)
	// CountUnreadConversations 统计含有发给 receiver 的未读消息的会话数
	CountUnreadConversations(ctx context.Context, receiver model.Participant) (int64, error)
	// FindAttachmentUrls 返回会话中所有非空附件 URL，新的在前
	FindAttachmentUrls(ctx context.Context, conversationId string) ([]string, error)
}

// DirectoryRepository 医生/护士目录只读接口
type DirectoryRepository interface {
	// FindProfile 查询单个参与者资料，不存在返回 CodeNotFound
	FindProfile(ctx context.Context, p model.Participant) (*model.ParticipantProfile, error)
	// FindProfiles 批量查询，目录中不存在的参与者不出现在结果中
	FindProfiles(ctx context.Context, ps []model.Participant) (map[model.Participant]model.ParticipantProfile, error)
	// SearchByName 姓名大小写不敏感包含匹配，医生和护士合并后按姓名排序，最多 limit 条
	SearchByName(ctx context.Context, term string, limit int) ([]model.ParticipantProfile, error)
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db        *gorm.DB
	Message   MessageRepository
	Directory DirectoryRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Message:   NewMessageRepository(db),
		Directory: NewDirectoryRepository(db),
	}
}

// Ping 检查数据库连接是否可用（健康检查使用）
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return wrapDBError(err, "获取数据库连接")
	}
	return wrapDBError(sqlDB.PingContext(ctx), "数据库 ping")
}

// Close 关闭底层连接池
func (r *Repositories) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
