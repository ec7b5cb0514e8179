package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrDuplicateID  = errors.New("duplicate id")
)

// ParseError 项目文件结构错误。Field 是出错字段的路径，例如 scenes[0].shots[2].shot_id
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse project: %v", e.Err)
	}
	return fmt.Sprintf("parse project: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type rawProject struct {
	Project             *string           `json:"project"`
	CoreStyle           map[string]any    `json:"core_style"`
	CharacterReferences map[string]string `json:"character_references"`
	Scenes              *[]rawScene       `json:"scenes"`
}

type rawScene struct {
	SceneID    *string   `json:"scene_id"`
	ProjectID  string    `json:"project_id"`
	SceneTitle string    `json:"scene_title"`
	Timestamp  string    `json:"timestamp"`
	Shots      []rawShot `json:"shots"`
}

type rawShot struct {
	ShotID      *string          `json:"shot_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	OrderIndex  *int             `json:"order_index"`
	Keyframes   *KeyframePrompts `json:"nano_banana_pro_prompts"`
	VideoPrompt string           `json:"veo_3_1_prompt"`
}

// ParseProject 解析项目 JSON。只校验渲染所必需的字段，可选的提示词缺失是合法的
func ParseProject(data []byte) (*ProjectData, error) {
	var raw rawProject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if raw.Project == nil || strings.TrimSpace(*raw.Project) == "" {
		return nil, &ParseError{Field: "project", Err: ErrMissingField}
	}
	if raw.Scenes == nil {
		return nil, &ParseError{Field: "scenes", Err: ErrMissingField}
	}

	project := &ProjectData{
		Project:             *raw.Project,
		CoreStyle:           raw.CoreStyle,
		CharacterReferences: raw.CharacterReferences,
		Scenes:              make([]Scene, 0, len(*raw.Scenes)),
	}

	seenScenes := make(map[string]bool, len(*raw.Scenes))
	for i, rs := range *raw.Scenes {
		field := fmt.Sprintf("scenes[%d]", i)
		if rs.SceneID == nil || *rs.SceneID == "" {
			return nil, &ParseError{Field: field + ".scene_id", Err: ErrMissingField}
		}
		sceneID := *rs.SceneID
		if seenScenes[sceneID] {
			return nil, &ParseError{Field: field + ".scene_id", Err: fmt.Errorf("%w %q", ErrDuplicateID, sceneID)}
		}
		seenScenes[sceneID] = true

		scene := Scene{
			SceneID:    sceneID,
			ProjectID:  rs.ProjectID,
			SceneTitle: rs.SceneTitle,
			Timestamp:  rs.Timestamp,
			Shots:      make([]Shot, 0, len(rs.Shots)),
		}
		seenShots := make(map[string]bool, len(rs.Shots))
		for j, rsh := range rs.Shots {
			shotField := fmt.Sprintf("%s.shots[%d].shot_id", field, j)
			if rsh.ShotID == nil || *rsh.ShotID == "" {
				return nil, &ParseError{Field: shotField, Err: ErrMissingField}
			}
			shotID := *rsh.ShotID
			if seenShots[shotID] {
				return nil, &ParseError{Field: shotField, Err: fmt.Errorf("%w %q", ErrDuplicateID, shotID)}
			}
			seenShots[shotID] = true

			order := j + 1
			if rsh.OrderIndex != nil {
				order = *rsh.OrderIndex
			}
			keyframes := rsh.Keyframes
			if keyframes.Empty() {
				keyframes = nil
			}
			scene.Shots = append(scene.Shots, Shot{
				ShotID:      shotID,
				SceneID:     sceneID,
				Name:        rsh.Name,
				Description: rsh.Description,
				OrderIndex:  order,
				Keyframes:   keyframes,
				VideoPrompt: rsh.VideoPrompt,
			})
		}
		project.Scenes = append(project.Scenes, scene)
	}
	return project, nil
}

// LoadProjectFile 从本地文件读取并解析项目
func LoadProjectFile(path string) (*ProjectData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	return ParseProject(data)
}
