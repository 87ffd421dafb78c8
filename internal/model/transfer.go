package model

import (
	"fmt"
	"strings"
	"time"
)

type TransferMode string

const (
	ModeMove TransferMode = "MOVE"
	ModeCopy TransferMode = "COPY"
)

func ParseTransferMode(s string) (TransferMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ModeMove):
		return ModeMove, nil
	case string(ModeCopy):
		return ModeCopy, nil
	default:
		return "", fmt.Errorf("unknown transfer mode %q", s)
	}
}

func ModeFromMoveFlag(move bool) TransferMode {
	if move {
		return ModeMove
	}
	return ModeCopy
}

// Verb is the past-tense action word used in status lines.
func (m TransferMode) Verb() string {
	if m == ModeCopy {
		return "Copied"
	}
	return "Moved"
}

type TransferEvent struct {
	Path       string
	ObservedAt time.Time
}

type TransferOutcome struct {
	Mode        TransferMode
	SrcPath     string
	DstPath     string
	DestDir     string
	CrossDevice bool
	Bytes       int64
}

type StatusLine struct {
	Time    time.Time `json:"time"`
	Text    string    `json:"text"`
	SrcPath string    `json:"src"`
	Err     string    `json:"error,omitempty"`
}

func (l StatusLine) String() string {
	return l.Text
}
