package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"StoryToVideo-workspace/models"

	"github.com/google/uuid"
)

var (
	ErrNoProject      = errors.New("no project loaded")
	ErrNotJSON        = errors.New("only .json files are supported")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

// UploadError 上传失败（文件不合法、后端拒绝或解析失败）
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Backend 工作区依赖的后端能力
type Backend interface {
	Generator
	UploadProject(ctx context.Context, filename string, content io.Reader) (*models.ProjectData, error)
	MediaURL(fileURL string) string
}

// Session 一次上传对应一个会话：项目 + 任务状态。重新上传会替换整个会话
type Session struct {
	ID       string
	Project  *models.ProjectData
	Tracker  *Tracker
	LoadedAt time.Time
}

// Workspace 持有当前会话
type Workspace struct {
	backend   Backend
	processor *Processor
	hub       *Hub
	logger    *slog.Logger
	maxUpload int64

	mu      sync.RWMutex
	session *Session
}

type WorkspaceOptions struct {
	MaxUploadBytes int64
	Logger         *slog.Logger
	Hub            *Hub
}

func NewWorkspace(backend Backend, opts WorkspaceOptions) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Workspace{
		backend:   backend,
		processor: NewProcessor(backend, logger),
		hub:       hub,
		logger:    logger,
		maxUpload: opts.MaxUploadBytes,
	}
}

func (w *Workspace) Hub() *Hub {
	return w.hub
}

// Session 当前会话，没有上传过项目时返回 nil
func (w *Workspace) Session() *Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

func (w *Workspace) MediaURL(fileURL string) string {
	return w.backend.MediaURL(fileURL)
}

// Upload 把文件交给后端解析，成功后开始新会话
func (w *Workspace) Upload(ctx context.Context, filename string, content io.Reader) (*Session, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return nil, &UploadError{Filename: name, Err: ErrNotJSON}
	}

	reader := content
	if w.maxUpload > 0 {
		data, err := io.ReadAll(io.LimitReader(content, w.maxUpload+1))
		if err != nil {
			return nil, &UploadError{Filename: name, Err: err}
		}
		if int64(len(data)) > w.maxUpload {
			return nil, &UploadError{Filename: name, Err: ErrUploadTooLarge}
		}
		reader = bytes.NewReader(data)
	}

	project, err := w.backend.UploadProject(ctx, name, reader)
	if err != nil {
		w.logger.Warn("project upload failed", slog.String("file", name), slog.String("error", err.Error()))
		return nil, &UploadError{Filename: name, Err: err}
	}

	session := &Session{
		ID:       uuid.NewString(),
		Project:  project,
		LoadedAt: time.Now(),
	}
	session.Tracker = NewTracker(func(s Snapshot) {
		w.hub.Publish(Update{SessionID: session.ID, Project: project.Project, Version: s.Version(), Tasks: s.Tasks()})
	})

	w.mu.Lock()
	w.session = session
	w.mu.Unlock()

	w.logger.Info("project loaded",
		slog.String("session_id", session.ID),
		slog.String("project", project.Project),
		slog.Int("scenes", len(project.Scenes)),
		slog.Int("shots", project.ShotCount()),
	)
	w.hub.Publish(Update{SessionID: session.ID, Project: project.Project, Tasks: []TaskView{}})
	return session, nil
}

// Generate 对当前会话触发一个生成动作
func (w *Workspace) Generate(ctx context.Context, action Action) (models.TaskID, error) {
	session := w.Session()
	if session == nil {
		return action.TaskID(), ErrNoProject
	}
	return w.processor.Dispatch(ctx, session.Tracker, session.Project, action)
}

// Wait 等待所有在途请求结束（关闭服务和测试时使用）
func (w *Workspace) Wait() {
	w.processor.Wait()
}
