package model

import "time"

// PresenceRecord 参与者在线状态，每个参与者一条
// LastSeen 为空表示从未离线过（或从未上线）
type PresenceRecord struct {
	Participant Participant
	IsOnline    bool
	LastSeen    *time.Time
}
