package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/GriffinCanCode/fileprediction/internal/domain/navcontext"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navigation"
	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/GriffinCanCode/fileprediction/internal/workspace"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName    = "file-prediction"
	serviceVersion = "0.1.0"

	defaultRecent = 20
	maxRecent     = 100
)

// RecentEvents returns the latest logged events, oldest first
type RecentEvents interface {
	Recent(n int) []types.Event
	RecentForProject(ctx context.Context, projectID string, n int) ([]types.Event, error)
}

// Workspaces looks up the per-project state built for a project
type Workspaces interface {
	Get(pid id.ProjectID) (*workspace.Workspace, bool)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	projects   *project.Registry
	nav        *navigation.Service
	events     RecentEvents
	workspaces Workspaces
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewHandlers creates a new handler set. events and workspaces may be nil.
func NewHandlers(
	projects *project.Registry,
	nav *navigation.Service,
	events RecentEvents,
	workspaces Workspaces,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		projects:   projects,
		nav:        nav,
		events:     events,
		workspaces: workspaces,
		metrics:    metrics,
		logger:     logger,
	}
}

// Register mounts the API routes on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", h.CreateProject)
	api.DELETE("/projects/:id", h.DeleteProject)
	api.GET("/projects/:id/session", h.GetSession)
	api.POST("/projects/:id/selected", h.FileSelected)
	api.POST("/projects/:id/opened", h.FileOpened)
	api.POST("/projects/:id/closed", h.FileClosed)
	api.GET("/events/recent", h.RecentEvents)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"projects":     h.projects.Count(),
		"coordinators": h.nav.Active(),
		"metrics":      h.metrics.GetSnapshot(),
	})
}

// CreateProjectRequest opens a project
type CreateProjectRequest struct {
	Name  string `json:"name" binding:"required"`
	Path  string `json:"path"`
	Light bool   `json:"light"`
}

// ListProjects lists open projects
func (h *Handlers) ListProjects(c *gin.Context) {
	projects := h.projects.List()
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"count":    len(projects),
	})
}

// CreateProject opens a project rooted at a directory
func (h *Handlers) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Path == "" && !req.Light {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required unless the project is light"})
		return
	}
	if req.Path != "" {
		info, err := os.Stat(req.Path)
		if err != nil || !info.IsDir() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "path must be an existing directory"})
			return
		}
	}

	p := h.projects.Open(req.Name, req.Path, req.Light)
	h.logger.Info("project opened",
		zap.String("project_id", p.ID.String()),
		zap.String("path", p.BasePath),
		zap.Bool("light", p.Light),
	)

	c.JSON(http.StatusCreated, p)
}

// DeleteProject disposes a project and cancels its background work
func (h *Handlers) DeleteProject(c *gin.Context) {
	pid, ok := h.projectID(c)
	if !ok {
		return
	}

	if err := h.projects.Dispose(pid); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("project disposed", zap.String("project_id", pid.String()))

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"project_id": pid,
	})
}

// SessionView is a navigation session as returned by the API
type SessionView struct {
	ID   int64   `json:"id"`
	Draw float64 `json:"draw"`
}

// WorkspaceView summarizes the navigation state of a project
type WorkspaceView struct {
	History int                 `json:"history"`
	Context navcontext.Snapshot `json:"context"`
}

// SessionResponse describes the latest navigation session
type SessionResponse struct {
	ProjectID id.ProjectID   `json:"project_id"`
	Session   *SessionView   `json:"session"`
	Workspace *WorkspaceView `json:"workspace,omitempty"`
}

// GetSession returns the current session of a project
func (h *Handlers) GetSession(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}

	resp := SessionResponse{ProjectID: p.ID}
	if s, ok := h.nav.CurrentSession(p); ok {
		resp.Session = &SessionView{ID: s.ID, Draw: s.Draw}
	}
	if h.workspaces != nil {
		if ws, ok := h.workspaces.Get(p.ID); ok {
			resp.Workspace = &WorkspaceView{History: ws.History.Len(), Context: ws.Context.Snapshot()}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SelectedRequest reports a selection change
type SelectedRequest struct {
	File string `json:"file" binding:"required"`
	Prev string `json:"prev"`
}

// FileRequest reports an open or close
type FileRequest struct {
	File string `json:"file" binding:"required"`
}

// FileSelected handles a selection change
func (h *Handlers) FileSelected(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req SelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file := types.NewFile(p.Resolve(req.File))
	prev := types.None[types.File]()
	if req.Prev != "" {
		prev = types.Some(types.NewFile(p.Resolve(req.Prev)))
	}

	h.nav.OnFileSelected(p, file, prev)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "file": file.Path})
}

// FileOpened handles a file being opened
func (h *Handlers) FileOpened(c *gin.Context) {
	h.fileEvent(c, h.nav.OnFileOpened)
}

// FileClosed handles a file being closed
func (h *Handlers) FileClosed(c *gin.Context) {
	h.fileEvent(c, h.nav.OnFileClosed)
}

func (h *Handlers) fileEvent(c *gin.Context, forward func(*project.Project, types.File)) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file := types.NewFile(p.Resolve(req.File))
	forward(p, file)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "file": file.Path})
}

// RecentEvents returns the latest logged events, optionally of one project
func (h *Handlers) RecentEvents(c *gin.Context) {
	limit := defaultRecent
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecent {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	var pid id.ProjectID
	if raw := c.Query("project"); raw != "" {
		parsed, err := id.ParseProjectID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pid = parsed
	}

	events := []types.Event{}
	switch {
	case h.events == nil:
	case pid != "":
		found, err := h.events.RecentForProject(c.Request.Context(), pid.String(), limit)
		if err != nil {
			h.logger.Error("failed to read project events", zap.String("project_id", pid.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read events"})
			return
		}
		events = append(events, found...)
	default:
		events = append(events, h.events.Recent(limit)...)
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *Handlers) projectID(c *gin.Context) (id.ProjectID, bool) {
	pid, err := id.ParseProjectID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return pid, true
}

func (h *Handlers) project(c *gin.Context) (*project.Project, bool) {
	pid, ok := h.projectID(c)
	if !ok {
		return nil, false
	}
	p, found := h.projects.Get(pid)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": project.ErrNotFound.Error()})
		return nil, false
	}
	return p, true
}
