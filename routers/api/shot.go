package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"StoryToVideo-workspace/models"
	"StoryToVideo-workspace/service"

	"github.com/gin-gonic/gin"
)

var errInvalidKind = errors.New("invalid task kind")

func actionFromPath(c *gin.Context) (service.Action, error) {
	kind, ok := models.ParseTaskKind(c.Param("kind"))
	if !ok {
		return service.Action{}, fmt.Errorf("%w: %q", errInvalidKind, c.Param("kind"))
	}
	return service.Action{
		SceneID: c.Param("scene_id"),
		ShotID:  c.Param("shot_id"),
		Kind:    kind,
	}, nil
}

func (h *Handler) dispatch(c *gin.Context) (models.TaskID, error) {
	action, err := actionFromPath(c)
	if err != nil {
		return "", err
	}
	id, err := h.ws.Generate(c.Request.Context(), action)
	if err != nil {
		h.logger.Info("generation rejected",
			slog.String("task_id", string(id)),
			slog.String("reason", err.Error()),
		)
	}
	return id, err
}

// 页面按钮：POST /shots/:scene_id/:shot_id/:kind，成功后回到工作区
func (h *Handler) GenerateFromForm(c *gin.Context) {
	if _, err := h.dispatch(c); err != nil {
		_ = c.Error(err)
		h.renderPage(c, dispatchStatus(err), err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// 触发生成：POST /api/tasks/:scene_id/:shot_id/:kind
func (h *Handler) GenerateTask(c *gin.Context) {
	id, err := h.dispatch(c)
	if err != nil {
		_ = c.Error(err)
		c.JSON(dispatchStatus(err), gin.H{"task_id": id, "error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": id, "status": models.TaskStatusGenerating})
}

func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidKind), errors.Is(err, service.ErrNoProject):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownShot), errors.Is(err, service.ErrNoPrompt):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTaskInFlight), errors.Is(err, service.ErrTaskCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
