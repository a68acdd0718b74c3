package redis

import (
	"context"
	"strconv"
	"time"

	"medichat_server/internal/model"
	"medichat_server/pkg/constants"
	"medichat_server/pkg/errorx"
)

const (
	fieldIsOnline = "is_online"
	fieldLastSeen = "last_seen"
)

// PresenceStore 在线状态存储，每个参与者一个 hash：presence_DOCTOR_7
// 不设置过期时间，记录一直保留到下一次状态变化
type PresenceStore struct {
	cache CacheService
}

// NewPresenceStore 创建在线状态存储
func NewPresenceStore(cache CacheService) *PresenceStore {
	return &PresenceStore{cache: cache}
}

func presenceKey(p model.Participant) string {
	return constants.PRESENCE_KEY_PREFIX + p.Token()
}

// Save 覆盖写入参与者的在线状态
func (s *PresenceStore) Save(ctx context.Context, rec model.PresenceRecord) error {
	lastSeen := ""
	if rec.LastSeen != nil {
		lastSeen = rec.LastSeen.UTC().Format(time.RFC3339Nano)
	}
	return s.cache.HSet(ctx, presenceKey(rec.Participant), map[string]string{
		fieldIsOnline: strconv.FormatBool(rec.IsOnline),
		fieldLastSeen: lastSeen,
	})
}

// Load 读取参与者的在线状态，没有记录时 found 为 false
func (s *PresenceStore) Load(ctx context.Context, p model.Participant) (rec model.PresenceRecord, found bool, err error) {
	fields, err := s.cache.HGetAll(ctx, presenceKey(p))
	if err != nil {
		return model.PresenceRecord{}, false, err
	}
	rec.Participant = p
	if len(fields) == 0 {
		return rec, false, nil
	}

	rec.IsOnline, err = strconv.ParseBool(fields[fieldIsOnline])
	if err != nil {
		return model.PresenceRecord{}, false, errorx.Wrapf(err, errorx.CodeCacheError, "corrupt presence record %s", presenceKey(p))
	}
	if raw := fields[fieldLastSeen]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return model.PresenceRecord{}, false, errorx.Wrapf(err, errorx.CodeCacheError, "corrupt presence record %s", presenceKey(p))
		}
		rec.LastSeen = &t
	}
	return rec, true, nil
}
