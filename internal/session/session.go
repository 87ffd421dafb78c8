package session

import (
	"errors"
	"fmt"
	"hotfolder/internal/logger"
	"hotfolder/internal/metrics"
	"hotfolder/internal/model"
	"hotfolder/internal/transfer"
	"hotfolder/internal/util"
	"hotfolder/internal/watcher"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMissingConfig         = errors.New("missing config")
	ErrInvalidRoot           = watcher.ErrInvalidRoot
	ErrDestinationUnwritable = transfer.ErrDestinationUnwritable
	ErrAlreadyRunning        = errors.New("a session is already running")
	ErrNeedsReset            = errors.New("session errored, reset it before starting again")
)

// running is the process-wide slot; at most one session holds it.
var running struct {
	mu    sync.Mutex
	owner *Session
}

func acquire(s *Session) bool {
	running.mu.Lock()
	defer running.mu.Unlock()

	if running.owner != nil && running.owner != s {
		return false
	}
	running.owner = s
	return true
}

func release(s *Session) {
	running.mu.Lock()
	defer running.mu.Unlock()

	if running.owner == s {
		running.owner = nil
	}
}

type StatusFunc func(model.StatusLine)

// StateFunc receives each transition with the snapshot taken at that moment.
type StateFunc func(from, to model.SessionState, snap model.SessionSnapshot, err error)

type transition struct {
	from, to model.SessionState
	snap     model.SessionSnapshot
	err      error
}

type Session struct {
	mu    sync.Mutex
	state model.SessionState
	fault error

	id        string
	watch     model.WatchConfig
	xfer      model.TransferConfig
	startedAt *time.Time
	lastEvent *time.Time
	synced    int
	failed    int
	overflows int

	w      *watcher.Watcher
	stopCh chan struct{}
	doneCh chan struct{}

	bufSize  int
	onStatus StatusFunc
	onState  StateFunc

	pending  []transition
	notifyMu sync.Mutex
}

type Option func(*Session)

// WithStatusFunc registers fn for every status line. fn runs on the session
// goroutine, or on the watcher goroutine for overflow notices, so it may be
// called concurrently and must not call Stop.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Session) {
		s.onStatus = fn
	}
}

// WithStateFunc registers fn for every state transition. Transitions are
// delivered one at a time in the order they happened, without the session
// lock held.
func WithStateFunc(fn StateFunc) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

func WithBufferSize(n int) Option {
	return func(s *Session) {
		s.bufSize = n
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		state: model.SessionIdle,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates both configs, starts the watcher and wires its events to
// the transfer handler. On error the state is left unchanged.
func (s *Session) Start(wc model.WatchConfig, tc model.TransferConfig) error {
	if wc.Root == "" || tc.DestDir == "" {
		return fmt.Errorf("%w: both the watch root and the destination are required", ErrMissingConfig)
	}

	if tc.Mode == "" {
		tc.Mode = model.ModeMove
	}

	root, err := filepath.Abs(wc.Root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	dest, err := filepath.Abs(tc.DestDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}
	wc.Root, tc.DestDir = root, dest

	s.mu.Lock()
	switch s.state {
	case model.SessionRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case model.SessionErrored:
		s.mu.Unlock()
		return ErrNeedsReset
	}

	if err := s.begin(wc, tc); err != nil {
		s.mu.Unlock()
		return err
	}
	s.transition(model.SessionRunning, nil)
	id := s.id
	s.mu.Unlock()

	logger.Log.Info("session started",
		zap.String("id", id),
		zap.String("root", wc.Root),
		zap.String("dest", tc.DestDir),
		zap.String("mode", string(tc.Mode)))

	s.flush()
	return nil
}

// begin starts the watcher and consumer goroutine. Called with s.mu held.
func (s *Session) begin(wc model.WatchConfig, tc model.TransferConfig) error {
	if err := validate(wc.Root, tc.DestDir); err != nil {
		return err
	}

	if !acquire(s) {
		return ErrAlreadyRunning
	}

	w, err := watcher.Start(wc.Root, wc.Recursive,
		watcher.WithBufferSize(s.bufSize),
		watcher.WithOverflowFunc(s.overflowed))
	if err != nil {
		release(s)
		return err
	}

	s.id = uuid.NewString()
	s.watch, s.xfer = wc, tc
	startedAt := time.Now()
	s.startedAt = &startedAt
	s.lastEvent = nil
	s.synced, s.failed, s.overflows = 0, 0, 0
	s.fault = nil
	s.w = w
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	handler := transfer.New(transfer.WithReporter(s.report))
	go s.run(w, handler, tc, s.stopCh, s.doneCh)

	return nil
}

func validate(root, dest string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	info, err = os.Stat(dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDestinationUnwritable, dest)
	}

	if util.IsWithin(root, dest) {
		return fmt.Errorf("%w: destination %s lies inside the watched root", ErrInvalidRoot, dest)
	}

	return nil
}

// run is the single consumer of watcher events; transfers happen one at a
// time in delivery order.
func (s *Session) run(w *watcher.Watcher, h *transfer.Handler, tc model.TransferConfig, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-w.Events():
			if !ok {
				s.fail(w.Err())
				return
			}

			// stop wins over events that were already queued
			select {
			case <-stopCh:
				return
			default:
			}

			_, err := h.Handle(event.Path, tc.DestDir, tc.Mode)
			s.record(event, err)
		}
	}
}

func (s *Session) record(event model.TransferEvent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	observedAt := event.ObservedAt
	s.lastEvent = &observedAt
	if err != nil {
		s.failed++
	} else {
		s.synced++
	}
}

func (s *Session) report(line model.StatusLine) {
	if s.onStatus != nil {
		s.onStatus(line)
	}
}

// fail moves a running session to Errored after its watcher died.
func (s *Session) fail(err error) {
	if err == nil {
		err = watcher.ErrWatcherTerminated
	}

	s.mu.Lock()
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return
	default:
	}
	if s.state != model.SessionRunning {
		s.mu.Unlock()
		return
	}

	s.fault = err
	s.w.Stop()
	release(s)
	s.transition(model.SessionErrored, err)
	id := s.id
	s.mu.Unlock()

	logger.Log.Error("session errored",
		zap.String("id", id),
		zap.Error(err))
	s.flush()
}

// Stop ends a running session. It waits for an in-flight transfer to finish;
// no transfer starts after it returns. Stop on an idle or errored session is
// a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != model.SessionRunning {
		s.mu.Unlock()
		return
	}

	close(s.stopCh)
	w, doneCh := s.w, s.doneCh
	s.mu.Unlock()

	w.Stop()
	<-doneCh

	s.mu.Lock()
	release(s)
	s.transition(model.SessionIdle, nil)
	id := s.id
	s.mu.Unlock()

	logger.Log.Info("session stopped",
		zap.String("id", id))
	s.flush()
}

// Reset clears a fault so the session can be started again.
func (s *Session) Reset() error {
	s.mu.Lock()
	switch s.state {
	case model.SessionRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case model.SessionIdle:
		s.mu.Unlock()
		return nil
	}

	s.fault = nil
	s.transition(model.SessionIdle, nil)
	id := s.id
	s.mu.Unlock()

	logger.Log.Info("session reset",
		zap.String("id", id))
	s.flush()
	return nil
}

// transition moves to state and queues the change for observers. Called with
// s.mu held; flush delivers it once the lock is released.
func (s *Session) transition(to model.SessionState, err error) {
	from := s.state
	s.state = to
	s.pending = append(s.pending, transition{
		from: from,
		to:   to,
		snap: s.snapshotLocked(),
		err:  err,
	})
}

// flush delivers queued transitions in order. If another goroutine is already
// delivering, it picks up ours as well.
func (s *Session) flush() {
	for {
		if !s.notifyMu.TryLock() {
			return
		}

		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			t := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			s.deliver(t)
		}
		s.notifyMu.Unlock()

		// a transition queued after the drain but before Unlock found the
		// lock taken and returned
		s.mu.Lock()
		empty := len(s.pending) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

func (s *Session) deliver(t transition) {
	metrics.SetSessionState(string(t.to),
		string(model.SessionIdle), string(model.SessionRunning), string(model.SessionErrored))

	if s.onState != nil {
		s.onState(t.from, t.to, t.snap, t.err)
	}
}

// overflowed runs on the watcher goroutine when the kernel queue dropped
// creation events.
func (s *Session) overflowed() {
	s.mu.Lock()
	s.overflows++
	root := s.watch.Root
	s.mu.Unlock()

	s.report(model.StatusLine{
		Time: time.Now(),
		Text: fmt.Sprintf("Missed new files in %s: event queue overflowed", root),
		Err:  watcher.ErrEventsLost.Error(),
	})
}

func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the watcher fault of an errored session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.SessionSnapshot {
	snap := model.SessionSnapshot{
		ID:          s.id,
		State:       s.state,
		Watch:       s.watch,
		Transfer:    s.xfer,
		StartedAt:   s.startedAt,
		Transferred: s.synced,
		Failed:      s.failed,
		LastEvent:   s.lastEvent,
		Overflows:   s.overflows,
	}
	if s.fault != nil {
		snap.Fault = s.fault.Error()
	}

	return snap
}
