// Package status exposes a small HTTP surface for liveness checks and
// operator-facing aggregate statistics.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/forestowl/notekeeper/internal/profile"
	"github.com/forestowl/notekeeper/store"
)

// RunnerState reports whether the reminder runner is alive.
type RunnerState interface {
	IsRunning() bool
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ReminderRunner bool   `json:"reminder_runner"`
}

// StatsResponse aggregates activity across all users.
type StatsResponse struct {
	Users            int `json:"users"`
	Notes            int `json:"notes"`
	PendingReminders int `json:"pending_reminders"`
	NotesCreated     int `json:"notes_created"`
	NotesDeleted     int `json:"notes_deleted"`
	AIAnalyses       int `json:"ai_analyses"`
}

// Server wraps the echo instance serving the status routes.
type Server struct {
	e        *echo.Echo
	addr     string
	registry *store.Store
	profile  *profile.Profile
	runner   RunnerState
}

// NewServer builds the status server and registers its routes.
func NewServer(p *profile.Profile, registry *store.Store, runner RunnerState) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		e:        e,
		addr:     p.Addr,
		registry: registry,
		profile:  p,
		runner:   runner,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/v1/stats", s.handleStats)
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        s.profile.Version,
		ReminderRunner: s.runner.IsRunning(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	var resp StatsResponse
	s.registry.ForEach(func(u *store.UserState) {
		u.Mu.Lock()
		resp.Users++
		resp.Notes += u.Notes.Count()
		resp.PendingReminders += u.Reminders.Len()
		resp.NotesCreated += u.Stats.TotalCreated()
		resp.NotesDeleted += u.Stats.TotalDeleted()
		resp.AIAnalyses += u.Stats.TotalAI()
		u.Mu.Unlock()
	})
	return c.JSON(http.StatusOK, resp)
}
