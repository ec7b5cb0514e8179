package api

import (
	"log/slog"
	"net/http"
	"time"

	"StoryToVideo-workspace/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) currentUpdate() (service.Update, bool) {
	session := h.ws.Session()
	if session == nil {
		return service.Update{Tasks: []service.TaskView{}}, false
	}
	snap := session.Tracker.Snapshot()
	return service.Update{
		SessionID: session.ID,
		Project:   session.Project.Project,
		Version:   snap.Version(),
		Tasks:     snap.Tasks(),
	}, true
}

// 任务状态快照：GET /api/tasks
func (h *Handler) GetTasks(c *gin.Context) {
	update, _ := h.currentUpdate()
	c.JSON(http.StatusOK, update)
}

// 任务进度 WebSocket 推送：先发当前快照，之后每次状态变化推送一次
func (h *Handler) TaskProgressWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写了错误响应
		_ = c.Error(err)
		return
	}
	defer conn.Close()

	updates, cancel := h.ws.Hub().Subscribe()
	defer cancel()

	// 读协程只负责发现连接关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	current, _ := h.currentUpdate()
	if err := h.writeUpdate(conn, current); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case u := <-updates:
			if err := h.writeUpdate(conn, u); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) writeUpdate(conn *websocket.Conn, u service.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(u); err != nil {
		h.logger.Debug("websocket write failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (h *Handler) Healthz(c *gin.Context) {
	resp := gin.H{"status": "ok", "project_loaded": false}
	if session := h.ws.Session(); session != nil {
		resp["project_loaded"] = true
		resp["session_id"] = session.ID
	}
	c.JSON(http.StatusOK, resp)
}
