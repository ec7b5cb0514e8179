package api

import (
	"errors"
	"log/slog"
	"net/http"

	"StoryToVideo-workspace/models"
	"StoryToVideo-workspace/service"
	"StoryToVideo-workspace/view"

	"github.com/gin-gonic/gin"
)

const uploadAlert = "Failed to upload JSON file"

// Handler 所有路由共用的工作区和日志
type Handler struct {
	ws     *service.Workspace
	logger *slog.Logger
}

func NewHandler(ws *service.Workspace, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{ws: ws, logger: logger}
}

// 工作区页面：GET /
func (h *Handler) WorkspacePage(c *gin.Context) {
	h.renderPage(c, http.StatusOK, "")
}

func (h *Handler) renderPage(c *gin.Context, status int, alert string) {
	c.HTML(status, view.TemplateName, h.page(alert))
}

func (h *Handler) page(alert string) view.Page {
	session := h.ws.Session()
	if session == nil {
		return view.Page{Alert: alert}
	}
	snap := session.Tracker.Snapshot()
	page := view.BuildPage(session.Project, snap, h.ws.MediaURL)
	page.SessionID = session.ID
	page.Version = snap.Version()
	page.Alert = alert
	return page
}

// 上传项目：POST /upload，multipart 字段 file。失败时保留原来的项目
func (h *Handler) UploadProject(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(err)
		h.renderPage(c, http.StatusBadRequest, uploadAlert+": no file selected")
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		h.renderPage(c, http.StatusBadRequest, uploadAlert)
		return
	}
	defer f.Close()

	if _, err := h.ws.Upload(c.Request.Context(), fh.Filename, f); err != nil {
		_ = c.Error(err)
		h.renderPage(c, uploadStatus(err), uploadAlert+": "+err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// 当前项目：GET /api/project
func (h *Handler) GetProject(c *gin.Context) {
	session := h.ws.Session()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNoProject.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"loaded_at":  session.LoadedAt,
		"project":    session.Project,
	})
}

func uploadStatus(err error) int {
	var parseErr *models.ParseError
	var transportErr *service.TransportError
	switch {
	case errors.Is(err, service.ErrNotJSON), errors.Is(err, service.ErrUploadTooLarge):
		return http.StatusBadRequest
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
