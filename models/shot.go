package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FrameType 关键帧位置
type FrameType string

const (
	FrameStart  FrameType = "start"
	FrameMiddle FrameType = "middle"
	FrameEnd    FrameType = "end"
)

// Frames 按渲染顺序排列
var Frames = []FrameType{FrameStart, FrameMiddle, FrameEnd}

func ParseFrameType(s string) (FrameType, bool) {
	switch FrameType(strings.ToLower(strings.TrimSpace(s))) {
	case FrameStart:
		return FrameStart, true
	case FrameMiddle:
		return FrameMiddle, true
	case FrameEnd:
		return FrameEnd, true
	}
	return "", false
}

// KeyframePrompts 三个关键帧的生图提示词，空字符串表示该帧没有提示词
type KeyframePrompts struct {
	Start  string `json:"start"`
	Middle string `json:"middle"`
	End    string `json:"end"`
}

// Prompt 返回指定帧的提示词，nil 安全
func (k *KeyframePrompts) Prompt(f FrameType) string {
	if k == nil {
		return ""
	}
	switch f {
	case FrameStart:
		return k.Start
	case FrameMiddle:
		return k.Middle
	case FrameEnd:
		return k.End
	}
	return ""
}

func (k *KeyframePrompts) set(f FrameType, prompt string) {
	switch f {
	case FrameStart:
		k.Start = prompt
	case FrameMiddle:
		k.Middle = prompt
	case FrameEnd:
		k.End = prompt
	}
}

func (k *KeyframePrompts) Empty() bool {
	return k == nil || (k.Start == "" && k.Middle == "" && k.End == "")
}

// UnmarshalJSON 兼容两种格式:
//
//	{"start": "...", "middle": "...", "end": "..."}
//	[{"frame": "start", "prompt": "..."}, ...]
func (k *KeyframePrompts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var items []struct {
			Frame  string `json:"frame"`
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("keyframe prompt list: %w", err)
		}
		for _, item := range items {
			frame, ok := ParseFrameType(item.Frame)
			if !ok || item.Prompt == "" {
				continue
			}
			k.set(frame, item.Prompt)
		}
		return nil
	}
	type plain KeyframePrompts
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("keyframe prompts: %w", err)
	}
	*k = KeyframePrompts(p)
	return nil
}

type Shot struct {
	ShotID      string           `json:"shot_id"`
	SceneID     string           `json:"scene_id"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	OrderIndex  int              `json:"order_index"`
	Keyframes   *KeyframePrompts `json:"nano_banana_pro_prompts,omitempty"`
	VideoPrompt string           `json:"veo_3_1_prompt,omitempty"`
}

// HasImage 至少有一个关键帧提示词
func (s Shot) HasImage() bool {
	return !s.Keyframes.Empty()
}

func (s Shot) HasVideo() bool {
	return s.VideoPrompt != ""
}

// Title 展示用标题: name > description > "Shot"
func (s Shot) Title() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Description != "" {
		return s.Description
	}
	return "Shot"
}

// PromptFor 返回某个任务子类型对应的提示词
func (s Shot) PromptFor(kind TaskKind) string {
	if kind == TaskKindVideo {
		return s.VideoPrompt
	}
	if frame, ok := kind.Frame(); ok {
		return s.Keyframes.Prompt(frame)
	}
	return ""
}
