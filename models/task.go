package models

import "strings"

// 任务状态。没有记录即表示尚未开始
const (
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

type TaskStatus string

// TaskKind 任务子类型: 三个关键帧或视频
type TaskKind string

const (
	TaskKindStart  TaskKind = TaskKind(FrameStart)
	TaskKindMiddle TaskKind = TaskKind(FrameMiddle)
	TaskKindEnd    TaskKind = TaskKind(FrameEnd)
	TaskKindVideo  TaskKind = "video"
)

func ParseTaskKind(s string) (TaskKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == string(TaskKindVideo) {
		return TaskKindVideo, true
	}
	if frame, ok := ParseFrameType(s); ok {
		return TaskKind(frame), true
	}
	return "", false
}

// Frame 关键帧任务对应的帧位置；视频任务返回 false
func (k TaskKind) Frame() (FrameType, bool) {
	if k == TaskKindVideo {
		return "", false
	}
	return ParseFrameType(string(k))
}

// TaskID 由 scene_id、shot_id 和子类型拼接而成，例如 "S1-T1-start"。
// id 中的 "-" 和 "%" 会被转义，保证不同镜头不会拼出同一个 TaskID
type TaskID string

var taskIDEscaper = strings.NewReplacer("%", "%25", "-", "%2D")

func NewTaskID(sceneID, shotID string, kind TaskKind) TaskID {
	return TaskID(taskIDEscaper.Replace(sceneID) + "-" + taskIDEscaper.Replace(shotID) + "-" + string(kind))
}

// ImageRequest POST /generate-image 请求体
type ImageRequest struct {
	ProjectName string `json:"project_name"`
	SceneID     string `json:"scene_id"`
	ShotID      string `json:"shot_id"`
	Prompt      string `json:"prompt"`
	FrameType   string `json:"frame_type"`
}

// VideoRequest POST /generate-video 请求体
type VideoRequest struct {
	ProjectName string `json:"project_name"`
	SceneID     string `json:"scene_id"`
	ShotID      string `json:"shot_id"`
	Prompt      string `json:"prompt"`
}
