package daemon

import (
	"encoding/json"
	"hotfolder/internal/config"
	"hotfolder/internal/db"
	"hotfolder/internal/model"
	"hotfolder/internal/repository"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *Server
	ctrl    *Controller
	hot     string
	archive string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() {
		_ = db.Close()
		db.DB = nil
	})

	cfg := config.Default
	cfg.Directory.HFPath = ""
	cfg.Directory.DestPath = ""

	ctrl := NewController(&cfg, repository.NewSessionRepository())
	t.Cleanup(func() { ctrl.StopSession() })

	return &fixture{
		srv:     NewServer(ctrl, 0),
		ctrl:    ctrl,
		hot:     t.TempDir(),
		archive: t.TempDir(),
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) startBody(mode string) string {
	body, _ := json.Marshal(StartRequest{Root: f.hot, Dest: f.archive, Mode: mode})
	return string(body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServer_StatusIdle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SessionIdle, decode[model.SessionSnapshot](t, rec).State)
}

func TestServer_StartMissingConfig(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/session/start", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing config")
	assert.Equal(t, model.SessionIdle, f.ctrl.Snapshot().State)
}

func TestServer_StartInvalidMode(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/session/start", f.startBody("teleport"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/session/start", f.startBody("copy"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[model.SessionSnapshot](t, rec)
	assert.Equal(t, model.SessionRunning, snap.State)
	assert.Equal(t, model.ModeCopy, snap.Transfer.Mode)
	assert.NotEmpty(t, snap.ID)

	rec = f.do(t, http.MethodPost, "/session/start", f.startBody("move"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	staged := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(staged, []byte("%PDF"), 0644))
	src := filepath.Join(f.hot, "report.pdf")
	require.NoError(t, os.Rename(staged, src))

	want := "Copied " + src + " to " + f.archive
	assert.Eventually(t, func() bool {
		var lines []model.StatusLine
		if err := json.Unmarshal(f.do(t, http.MethodGet, "/lines?n=5", "").Body.Bytes(), &lines); err != nil {
			return false
		}
		return len(lines) == 1 && lines[0].Text == want
	}, 3*time.Second, 20*time.Millisecond)

	rec = f.do(t, http.MethodPost, "/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stopped := decode[model.SessionSnapshot](t, rec)
	assert.Equal(t, model.SessionIdle, stopped.State)
	assert.Equal(t, 1, stopped.Transferred)

	rec = f.do(t, http.MethodGet, "/sessions?n=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]model.SessionRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, snap.ID, records[0].SessionID)
	assert.Equal(t, model.SessionIdle, records[0].State)
	assert.Equal(t, 1, records[0].Transferred)
	assert.NotNil(t, records[0].EndedAt)

	rec = f.do(t, http.MethodGet, "/sessions/"+snap.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.hot, decode[model.SessionRecord](t, rec).Root)

	rec = f.do(t, http.MethodGet, "/sessions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[repository.Stats](t, rec)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.Equal(t, int64(1), stats.Transferred)
}

func TestServer_UnknownSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_FallsBackToConfig(t *testing.T) {
	f := newFixture(t)
	f.ctrl.cfg.Directory.HFPath = f.hot
	f.ctrl.cfg.Directory.DestPath = f.archive
	f.ctrl.cfg.Directory.MoveFiles = false

	rec := f.do(t, http.MethodPost, "/session/start", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	snap := decode[model.SessionSnapshot](t, rec)
	assert.Equal(t, f.hot, snap.Watch.Root)
	assert.True(t, snap.Watch.Recursive)
	assert.Equal(t, model.ModeCopy, snap.Transfer.Mode)
}

func TestServer_ErroredSessionNeedsReset(t *testing.T) {
	f := newFixture(t)
	states := make(chan model.SessionState, 8)
	f.ctrl.OnState(func(_, to model.SessionState, _ model.SessionSnapshot, _ error) { states <- to })

	hot := filepath.Join(f.hot, "inbox")
	require.NoError(t, os.Mkdir(hot, 0755))
	body, _ := json.Marshal(StartRequest{Root: hot, Dest: f.archive})
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/session/start", string(body)).Code)
	require.Equal(t, model.SessionRunning, <-states)

	require.NoError(t, os.RemoveAll(hot))
	select {
	case st := <-states:
		require.Equal(t, model.SessionErrored, st)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not error after its root was removed")
	}

	status := decode[model.SessionSnapshot](t, f.do(t, http.MethodGet, "/status", ""))
	assert.Equal(t, model.SessionErrored, status.State)
	assert.NotEmpty(t, status.Fault)

	require.NoError(t, os.Mkdir(hot, 0755))
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/session/start", string(body)).Code)

	rec := f.do(t, http.MethodPost, "/session/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SessionIdle, decode[model.SessionSnapshot](t, rec).State)

	records, err := f.ctrl.Repository().GetRecent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.SessionErrored, records[0].State)
	assert.NotEmpty(t, records[0].Fault)
}

func TestServer_StopDaemon(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-f.srv.StopCh():
	default:
		t.Fatal("stop request was not signalled")
	}

	// a second request must not block
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/stop", "").Code)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestController_RestartKeepsRecordsApart(t *testing.T) {
	f := newFixture(t)
	req := StartRequest{Root: f.hot, Dest: f.archive, Mode: "move"}

	first, err := f.ctrl.StartSession(req)
	require.NoError(t, err)
	f.ctrl.StopSession()

	second, err := f.ctrl.StartSession(req)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	closed, err := f.ctrl.Repository().GetBySessionID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionIdle, closed.State)
	assert.NotNil(t, closed.EndedAt)

	open, err := f.ctrl.Repository().GetBySessionID(second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRunning, open.State)
	assert.Nil(t, open.EndedAt)
}
