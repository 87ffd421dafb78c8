package daemon

import (
	"context"
	"errors"
	"hotfolder/internal/logger"
	"hotfolder/internal/metrics"
	"hotfolder/internal/session"
	"hotfolder/internal/transfer"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	echo       *echo.Echo
	controller *Controller
	port       int
	stopCh     chan struct{}
}

func NewServer(controller *Controller, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		controller: controller,
		port:       port,
		stopCh:     make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// For the entire daemon
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// For the session
	g := s.echo.Group("/session")
	g.POST("/start", s.handleStartSession)
	g.POST("/stop", s.handleStopSession)
	g.POST("/reset", s.handleResetSession)

	// Output
	s.echo.GET("/lines", s.handleLines)
	s.echo.GET("/sessions", s.handleSessions)
	s.echo.GET("/sessions/stats", s.handleSessionStats)
	s.echo.GET("/sessions/:id", s.handleSession)
}

func (s *Server) Start() {
	go func() {
		addr := "localhost:" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.controller.StopSession()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleStartSession(c echo.Context) error {
	var req StartRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
	}

	snap, err := s.controller.StartSession(req)
	if err != nil {
		return c.JSON(startErrorStatus(err), map[string]any{
			"error":   err.Error(),
			"session": snap,
		})
	}

	return c.JSON(http.StatusCreated, snap)
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrAlreadyRunning), errors.Is(err, session.ErrNeedsReset):
		return http.StatusConflict
	case errors.Is(err, session.ErrMissingConfig),
		errors.Is(err, session.ErrInvalidRoot),
		errors.Is(err, transfer.ErrDestinationUnwritable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleStopSession(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.StopSession())
}

func (s *Server) handleResetSession(c echo.Context) error {
	snap, err := s.controller.ResetSession()
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"session": snap,
		})
	}

	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleLines(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.Lines(queryInt(c, "n", 20)))
}

func (s *Server) handleSessions(c echo.Context) error {
	repo := s.controller.Repository()
	if repo == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "session records disabled"})
	}

	records, err := repo.GetRecent(queryInt(c, "n", 20))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleSession(c echo.Context) error {
	repo := s.controller.Repository()
	if repo == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "session records disabled"})
	}

	record, err := repo.GetBySessionID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, record)
}

func (s *Server) handleSessionStats(c echo.Context) error {
	repo := s.controller.Repository()
	if repo == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "session records disabled"})
	}

	stats, err := repo.GetStats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}

	return def
}
