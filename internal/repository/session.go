package repository

import (
	"errors"
	"hotfolder/internal/db"
	"hotfolder/internal/model"
	"time"
)

var ErrNoDatabase = errors.New("database not initialised")

type SessionRepository struct{}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Begin records the start of a session run.
func (r *SessionRepository) Begin(snap model.SessionSnapshot) (model.SessionRecord, error) {
	if db.DB == nil {
		return model.SessionRecord{}, ErrNoDatabase
	}

	started := time.Now()
	if snap.StartedAt != nil {
		started = *snap.StartedAt
	}

	record := model.SessionRecord{
		SessionID: snap.ID,
		Root:      snap.Watch.Root,
		DestDir:   snap.Transfer.DestDir,
		Mode:      snap.Transfer.Mode,
		State:     snap.State,
		StartedAt: started,
	}

	return record, db.DB.Create(&record).Error
}

// Finish stores the final state and counters of a session run.
func (r *SessionRepository) Finish(snap model.SessionSnapshot) error {
	if db.DB == nil {
		return ErrNoDatabase
	}

	return db.DB.Model(&model.SessionRecord{}).
		Where("session_id = ?", snap.ID).
		Updates(map[string]any{
			"state":       snap.State,
			"fault":       snap.Fault,
			"transferred": snap.Transferred,
			"failed":      snap.Failed,
			"ended_at":    time.Now(),
		}).Error
}

func (r *SessionRepository) GetBySessionID(id string) (model.SessionRecord, error) {
	var record model.SessionRecord
	if db.DB == nil {
		return record, ErrNoDatabase
	}

	return record, db.DB.Where("session_id = ?", id).First(&record).Error
}

func (r *SessionRepository) GetRecent(limit int) ([]model.SessionRecord, error) {
	var records []model.SessionRecord
	if db.DB == nil {
		return records, ErrNoDatabase
	}

	result := db.DB.
		Order("started_at desc").
		Limit(limit).
		Find(&records)

	return records, result.Error
}

type Stats struct {
	Sessions    int64 `json:"sessions"`
	Errored     int64 `json:"errored"`
	Transferred int64 `json:"transferred"`
	Failed      int64 `json:"failed"`
}

func (r *SessionRepository) GetStats() (Stats, error) {
	var stats Stats
	if db.DB == nil {
		return stats, ErrNoDatabase
	}

	if err := db.DB.Model(&model.SessionRecord{}).Count(&stats.Sessions).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.SessionRecord{}).
		Where("state = ?", model.SessionErrored).
		Count(&stats.Errored).Error; err != nil {
		return stats, err
	}

	var totals struct {
		Transferred int64
		Failed      int64
	}
	if err := db.DB.Model(&model.SessionRecord{}).
		Select("COALESCE(SUM(transferred), 0) AS transferred, COALESCE(SUM(failed), 0) AS failed").
		Scan(&totals).Error; err != nil {
		return stats, err
	}
	stats.Transferred = totals.Transferred
	stats.Failed = totals.Failed

	return stats, nil
}
