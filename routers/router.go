package routers

import (
	"log/slog"

	"StoryToVideo-workspace/routers/api"
	"StoryToVideo-workspace/service"
	"StoryToVideo-workspace/view"

	"github.com/gin-gonic/gin"
)

func InitRouter(ws *service.Workspace, logger *slog.Logger, allowedOrigins []string) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := gin.New()
	// scene/shot id 里可能有转义的 "/"
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), requestID(), requestLogger(logger), corsMiddleware(allowedOrigins))
	r.SetHTMLTemplate(view.Template())

	h := api.NewHandler(ws, logger)
	r.GET("/", h.WorkspacePage)
	r.POST("/upload", h.UploadProject)
	r.POST("/shots/:scene_id/:shot_id/:kind", h.GenerateFromForm)
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/api")
	{
		v1.GET("/project", h.GetProject)
		v1.GET("/tasks", h.GetTasks)
		v1.POST("/tasks/:scene_id/:shot_id/:kind", h.GenerateTask)
		v1.GET("/tasks/ws", h.TaskProgressWebSocket)
	}
	return r
}
