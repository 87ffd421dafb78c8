package model

import (
	"time"

	"gorm.io/gorm"
)

// SessionRecord is one run of a session. Only aggregate counters are kept;
// individual transfers are not persisted.
type SessionRecord struct {
	gorm.Model
	SessionID   string       `gorm:"uniqueIndex;not null" json:"session_id"`
	Root        string       `gorm:"not null" json:"root"`
	DestDir     string       `gorm:"not null" json:"dest"`
	Mode        TransferMode `gorm:"not null" json:"mode"`
	State       SessionState `gorm:"not null" json:"state"`
	Fault       string       `json:"fault,omitempty"`
	Transferred int          `json:"transferred"`
	Failed      int          `json:"failed"`
	StartedAt   time.Time    `gorm:"not null" json:"started_at"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
}
