package daemon

import (
	"hotfolder/internal/config"
	"hotfolder/internal/logger"
	"hotfolder/internal/model"
	"hotfolder/internal/repository"
	"hotfolder/internal/session"
	"sync"

	"go.uber.org/zap"
)

// Controller owns the process's session and everything observed from it.
type Controller struct {
	cfg     *config.Config
	session *session.Session
	repo    *repository.SessionRepository
	lines   *lineBuffer

	mu       sync.RWMutex
	onStatus []func(model.StatusLine)
	onState  []session.StateFunc
}

type StartRequest struct {
	Root string `json:"root"`
	Dest string `json:"dest"`
	Mode string `json:"mode"`
}

func NewController(cfg *config.Config, repo *repository.SessionRepository) *Controller {
	c := &Controller{
		cfg:   cfg,
		repo:  repo,
		lines: newLineBuffer(cfg.StatusHistory),
	}

	c.session = session.New(
		session.WithBufferSize(cfg.BufferSize),
		session.WithStatusFunc(c.handleStatus),
		session.WithStateFunc(c.handleState),
	)

	return c
}

// OnStatus registers fn for every status line.
func (c *Controller) OnStatus(fn func(model.StatusLine)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// OnState registers fn for every session state transition.
func (c *Controller) OnState(fn session.StateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// StartSession starts watching. Empty request fields fall back to the
// configured values.
func (c *Controller) StartSession(req StartRequest) (model.SessionSnapshot, error) {
	wc := c.cfg.WatchConfig()
	tc := c.cfg.TransferConfig()

	if req.Root != "" {
		wc.Root = req.Root
	}
	if req.Dest != "" {
		tc.DestDir = req.Dest
	}
	if req.Mode != "" {
		mode, err := model.ParseTransferMode(req.Mode)
		if err != nil {
			return c.session.Snapshot(), err
		}
		tc.Mode = mode
	}

	if err := c.session.Start(wc, tc); err != nil {
		logger.Log.Warn("failed to start session",
			zap.String("root", wc.Root),
			zap.String("dest", tc.DestDir),
			zap.Error(err))
		return c.session.Snapshot(), err
	}

	return c.session.Snapshot(), nil
}

func (c *Controller) StopSession() model.SessionSnapshot {
	c.session.Stop()
	return c.session.Snapshot()
}

func (c *Controller) ResetSession() (model.SessionSnapshot, error) {
	err := c.session.Reset()
	return c.session.Snapshot(), err
}

func (c *Controller) Snapshot() model.SessionSnapshot {
	return c.session.Snapshot()
}

func (c *Controller) Lines(n int) []model.StatusLine {
	return c.lines.Last(n)
}

func (c *Controller) Repository() *repository.SessionRepository {
	return c.repo
}

func (c *Controller) handleStatus(line model.StatusLine) {
	c.lines.Add(line)

	c.mu.RLock()
	fns := c.onStatus
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(line)
	}
}

// handleState records the run using the snapshot taken at the transition, so
// a later session never closes an earlier session's record.
func (c *Controller) handleState(from, to model.SessionState, snap model.SessionSnapshot, err error) {
	if c.repo != nil {
		var recErr error
		switch {
		case to == model.SessionRunning:
			_, recErr = c.repo.Begin(snap)
		case from == model.SessionRunning:
			recErr = c.repo.Finish(snap)
		}
		if recErr != nil {
			logger.Log.Warn("failed to record session",
				zap.String("id", snap.ID),
				zap.Error(recErr))
		}
	}

	if to == model.SessionErrored {
		logger.Log.Error("monitoring stopped unexpectedly, reset the session to continue",
			zap.String("id", snap.ID),
			zap.String("root", snap.Watch.Root),
			zap.Error(err))
	}

	c.mu.RLock()
	fns := c.onState
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(from, to, snap, err)
	}
}
