package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"StoryToVideo-workspace/models"
)

var (
	ErrUnknownShot = errors.New("shot not found")
	ErrNoPrompt    = errors.New("shot has no prompt for this task")
)

// Generator 生成后端的两个生成接口
type Generator interface {
	GenerateImage(ctx context.Context, req models.ImageRequest) (*models.GeneratedFile, error)
	GenerateVideo(ctx context.Context, req models.VideoRequest) (*models.GeneratedFile, error)
}

// Action 一次可触发的生成动作
type Action struct {
	SceneID string
	ShotID  string
	Kind    models.TaskKind
}

func (a Action) TaskID() models.TaskID {
	return models.NewTaskID(a.SceneID, a.ShotID, a.Kind)
}

// Processor 发起生成请求并把结果写回 Tracker
type Processor struct {
	backend Generator
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewProcessor(backend Generator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{backend: backend, logger: logger}
}

// Dispatch 同步地把任务标记为 generating，然后在独立 goroutine 中请求后端。
// 请求不带超时也不能取消，ctx 只用于传递值。
func (p *Processor) Dispatch(ctx context.Context, tracker *Tracker, project *models.ProjectData, action Action) (models.TaskID, error) {
	id := action.TaskID()
	shot, ok := project.FindShot(action.SceneID, action.ShotID)
	if !ok {
		return id, fmt.Errorf("%w: %s/%s", ErrUnknownShot, action.SceneID, action.ShotID)
	}
	prompt := shot.PromptFor(action.Kind)
	if prompt == "" {
		return id, fmt.Errorf("%w: %s", ErrNoPrompt, id)
	}
	if err := tracker.Begin(id); err != nil {
		return id, err
	}

	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.handleGenerateTask(ctx, tracker, project.Project, action, prompt)
	}()
	return id, nil
}

// Wait 等待所有已发出的请求结束
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) handleGenerateTask(ctx context.Context, tracker *Tracker, projectName string, action Action, prompt string) {
	id := action.TaskID()
	log := p.logger.With(slog.String("task_id", string(id)))
	log.Info("generation dispatched", slog.String("kind", string(action.Kind)))

	file, err := p.dispatchBackendRequest(ctx, projectName, action, prompt)
	if err != nil {
		log.Warn("generation failed", slog.String("error", err.Error()))
		tracker.Fail(id)
		return
	}
	tracker.Complete(id, file.FileURL)
	log.Info("generation completed", slog.String("file_url", file.FileURL))
}

func (p *Processor) dispatchBackendRequest(ctx context.Context, projectName string, action Action, prompt string) (*models.GeneratedFile, error) {
	if action.Kind == models.TaskKindVideo {
		return p.backend.GenerateVideo(ctx, models.VideoRequest{
			ProjectName: projectName,
			SceneID:     action.SceneID,
			ShotID:      action.ShotID,
			Prompt:      prompt,
		})
	}
	frame, ok := action.Kind.Frame()
	if !ok {
		return nil, fmt.Errorf("unsupported task kind: %s", action.Kind)
	}
	return p.backend.GenerateImage(ctx, models.ImageRequest{
		ProjectName: projectName,
		SceneID:     action.SceneID,
		ShotID:      action.ShotID,
		Prompt:      prompt,
		FrameType:   string(frame),
	})
}
