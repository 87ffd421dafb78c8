package model

import "time"

type SessionState string

const (
	SessionIdle    SessionState = "IDLE"
	SessionRunning SessionState = "RUNNING"
	SessionErrored SessionState = "ERRORED"
)

type WatchConfig struct {
	Root      string `json:"root"`
	Recursive bool   `json:"recursive"`
}

type TransferConfig struct {
	DestDir string       `json:"dest"`
	Mode    TransferMode `json:"mode"`
}

type SessionSnapshot struct {
	ID          string         `json:"id,omitempty"`
	State       SessionState   `json:"state"`
	Watch       WatchConfig    `json:"watch"`
	Transfer    TransferConfig `json:"transfer"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	Transferred int            `json:"transferred"`
	Failed      int            `json:"failed"`
	LastEvent   *time.Time     `json:"last_event,omitempty"`
	Overflows   int            `json:"overflows"`
	Fault       string         `json:"fault,omitempty"`
}
