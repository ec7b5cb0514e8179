package view

import (
	"net/url"
	"strings"

	"StoryToVideo-workspace/models"
)

// TaskState 只读的任务状态，由 Tracker 快照实现
type TaskState interface {
	Status(id models.TaskID) (models.TaskStatus, bool)
	URL(id models.TaskID) string
}

type Page struct {
	HasProject bool
	Project    string
	SceneCount int
	SessionID  string
	Version    uint64
	Alert      string
	Scenes     []SceneView
}

type SceneView struct {
	ID        string
	Title     string
	Timestamp string
	Shots     []ShotView
}

type ShotView struct {
	ID          string
	Title       string
	Description string
	Keyframes   []ActionView
	Video       *ActionView
}

// HasActions 镜头是否至少有一个生成按钮
func (s ShotView) HasActions() bool {
	return len(s.Keyframes) > 0 || s.Video != nil
}

type ActionView struct {
	TaskID       models.TaskID
	Kind         models.TaskKind
	Label        string
	Prompt       string
	Control      Control
	MediaURL     string
	DispatchPath string
}

func frameLabel(frame models.FrameType) string {
	return strings.ToUpper(string(frame))
}

// BuildPage 组装页面模型。mediaURL 把后端返回的 file_url 转成完整地址
func BuildPage(project *models.ProjectData, state TaskState, mediaURL func(string) string) Page {
	if project == nil {
		return Page{}
	}
	page := Page{
		HasProject: true,
		Project:    project.Project,
		SceneCount: len(project.Scenes),
		Scenes:     make([]SceneView, 0, len(project.Scenes)),
	}
	for _, scene := range project.Scenes {
		sv := SceneView{
			ID:        scene.SceneID,
			Title:     scene.SceneTitle,
			Timestamp: scene.Timestamp,
			Shots:     make([]ShotView, 0, len(scene.Shots)),
		}
		if sv.Title == "" {
			sv.Title = "Untitled Scene"
		}
		if sv.Timestamp == "" {
			sv.Timestamp = "No Timestamp"
		}
		for _, shot := range scene.Shots {
			sv.Shots = append(sv.Shots, buildShot(scene.SceneID, shot, state, mediaURL))
		}
		page.Scenes = append(page.Scenes, sv)
	}
	return page
}

func buildShot(sceneID string, shot models.Shot, state TaskState, mediaURL func(string) string) ShotView {
	view := ShotView{
		ID:          shot.ShotID,
		Title:       shot.Title(),
		Description: shot.Description,
	}
	for _, frame := range models.Frames {
		prompt := shot.Keyframes.Prompt(frame)
		if prompt == "" {
			continue
		}
		kind := models.TaskKind(frame)
		view.Keyframes = append(view.Keyframes, buildAction(sceneID, shot.ShotID, kind, frameLabel(frame), prompt, LabelKeyframe, IconNone, state, mediaURL))
	}
	if shot.HasVideo() {
		action := buildAction(sceneID, shot.ShotID, models.TaskKindVideo, "Video", shot.VideoPrompt, LabelVideo, IconPlay, state, mediaURL)
		view.Video = &action
	}
	return view
}

func buildAction(sceneID, shotID string, kind models.TaskKind, label, prompt, idleLabel string, idleIcon Icon, state TaskState, mediaURL func(string) string) ActionView {
	id := models.NewTaskID(sceneID, shotID, kind)
	var status models.TaskStatus
	var fileURL string
	if state != nil {
		status, _ = state.Status(id)
		fileURL = state.URL(id)
	}
	action := ActionView{
		TaskID:       id,
		Kind:         kind,
		Label:        label,
		Prompt:       prompt,
		Control:      ControlFor(status, idleLabel, idleIcon),
		DispatchPath: DispatchPath(sceneID, shotID, kind),
	}
	if fileURL != "" && mediaURL != nil {
		action.MediaURL = mediaURL(fileURL)
	}
	return action
}

// DispatchPath 触发生成的表单地址
func DispatchPath(sceneID, shotID string, kind models.TaskKind) string {
	return "/shots/" + url.PathEscape(sceneID) + "/" + url.PathEscape(shotID) + "/" + string(kind)
}
