// Package presence 维护医护人员的在线状态
// 状态只有 OFFLINE（初始）和 ONLINE 两种，每次变化都会广播
package presence

import (
	"context"
	"time"

	"medichat_server/internal/model"

	"go.uber.org/zap"
)

// Store 在线状态存储
type Store interface {
	Save(ctx context.Context, rec model.PresenceRecord) error
	Load(ctx context.Context, p model.Participant) (model.PresenceRecord, bool, error)
}

// Directory 用于确认参与者存在
type Directory interface {
	FindProfile(ctx context.Context, p model.Participant) (*model.ParticipantProfile, error)
}

// Notifier 状态变化的广播通道（实时网关）
type Notifier interface {
	PublishPresence(ctx context.Context, rec model.PresenceRecord) error
}

type presenceService struct {
	store     Store
	directory Directory
	notifier  Notifier
	locks     *keyedMutex
	now       func() time.Time
}

// NewPresenceService 创建在线状态服务
func NewPresenceService(store Store, directory Directory, notifier Notifier) *presenceService {
	return &presenceService{
		store:     store,
		directory: directory,
		notifier:  notifier,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// SetStatus 设置在线状态并广播
// 下线时 last_seen 记为当前时间，上线时保留上一次的 last_seen
// 同一参与者的状态变化串行执行
func (s *presenceService) SetStatus(ctx context.Context, p model.Participant, online bool) (model.PresenceRecord, error) {
	if _, err := s.directory.FindProfile(ctx, p); err != nil {
		return model.PresenceRecord{}, err
	}

	unlock := s.locks.Lock(p)
	defer unlock()

	prev, _, err := s.store.Load(ctx, p)
	if err != nil {
		return model.PresenceRecord{}, err
	}
	rec := model.PresenceRecord{Participant: p, IsOnline: online, LastSeen: prev.LastSeen}
	if !online {
		now := s.now().UTC()
		rec.LastSeen = &now
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return model.PresenceRecord{}, err
	}

	// 广播失败不影响状态本身，客户端重连后会重新拉取
	if err := s.notifier.PublishPresence(ctx, rec); err != nil {
		zap.L().Error("publish presence failed", zap.Stringer("participant", p), zap.Error(err))
	}
	return rec, nil
}

// GetStatus 查询在线状态
// 目录中不存在的参与者返回 NotFound，存在但没有记录的视为离线
func (s *presenceService) GetStatus(ctx context.Context, p model.Participant) (model.PresenceRecord, error) {
	if _, err := s.directory.FindProfile(ctx, p); err != nil {
		return model.PresenceRecord{}, err
	}
	rec, _, err := s.store.Load(ctx, p)
	if err != nil {
		return model.PresenceRecord{}, err
	}
	return rec, nil
}

// Connected 实时连接完成身份绑定，失败只记录日志
func (s *presenceService) Connected(ctx context.Context, p model.Participant) {
	if _, err := s.SetStatus(ctx, p, true); err != nil {
		zap.L().Warn("presence connect failed", zap.Stringer("participant", p), zap.Error(err))
	}
}

// Disconnected 已绑定身份的实时连接断开，失败只记录日志
func (s *presenceService) Disconnected(ctx context.Context, p model.Participant) {
	if _, err := s.SetStatus(ctx, p, false); err != nil {
		zap.L().Warn("presence disconnect failed", zap.Stringer("participant", p), zap.Error(err))
	}
}
