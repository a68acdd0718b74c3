package respond

import (
	"strconv"
	"time"

	"medichat_server/internal/model"
)

// StatusRespond 在线状态
type StatusRespond struct {
	Success  bool    `json:"success"`
	Online   bool    `json:"online"`
	LastSeen *string `json:"lastSeen"`
}

// NewStatusRespond 转换在线状态记录
func NewStatusRespond(rec model.PresenceRecord) StatusRespond {
	return StatusRespond{
		Success:  true,
		Online:   rec.IsOnline,
		LastSeen: formatTimePtr(rec.LastSeen),
	}
}

// UpdateStatusRespond 更新在线状态
type UpdateStatusRespond struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
