// Package view 把项目和任务状态转换成页面模型，不持有任何状态
package view

import "StoryToVideo-workspace/models"

type Icon string

const (
	IconNone    Icon = ""
	IconPlay    Icon = "play"
	IconSpinner Icon = "spinner"
	IconCheck   Icon = "check"
	IconWarning Icon = "warning"
)

// 按钮状态名同时用作 CSS class
const (
	StateIdle       = "idle"
	StateGenerating = "generating"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

const (
	LabelKeyframe = "Gen"
	LabelVideo    = "Generate Video"
)

// Control 单个生成动作对应的按钮
type Control struct {
	State       string
	Label       string
	Icon        Icon
	Activatable bool
}

// ControlFor 根据任务状态决定按钮。状态为空表示尚未开始，
// 只有这时才使用 idleLabel 和 idleIcon
func ControlFor(status models.TaskStatus, idleLabel string, idleIcon Icon) Control {
	switch status {
	case models.TaskStatusGenerating:
		return Control{State: StateGenerating, Label: "Wait", Icon: IconSpinner}
	case models.TaskStatusCompleted:
		return Control{State: StateCompleted, Label: "Done", Icon: IconCheck}
	case models.TaskStatusFailed:
		return Control{State: StateFailed, Label: "Retry", Icon: IconWarning, Activatable: true}
	default:
		return Control{State: StateIdle, Label: idleLabel, Icon: idleIcon, Activatable: true}
	}
}

// Glyph 图标的文本形式
func (i Icon) Glyph() string {
	switch i {
	case IconPlay:
		return "▶"
	case IconSpinner:
		return "⟳"
	case IconCheck:
		return "✓"
	case IconWarning:
		return "⚠"
	}
	return ""
}
