package models

// ProjectData 上传后解析得到的项目结构，重新上传前不再修改
type ProjectData struct {
	Project             string            `json:"project"`
	CoreStyle           map[string]any    `json:"core_style,omitempty"`
	CharacterReferences map[string]string `json:"character_references,omitempty"`
	Scenes              []Scene           `json:"scenes"`
}

type Scene struct {
	SceneID    string `json:"scene_id"`
	ProjectID  string `json:"project_id,omitempty"`
	SceneTitle string `json:"scene_title,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Shots      []Shot `json:"shots"`
}

// FindShot 按 scene_id + shot_id 查找镜头
func (p *ProjectData) FindShot(sceneID, shotID string) (*Shot, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Scenes {
		if p.Scenes[i].SceneID != sceneID {
			continue
		}
		for j := range p.Scenes[i].Shots {
			if p.Scenes[i].Shots[j].ShotID == shotID {
				return &p.Scenes[i].Shots[j], true
			}
		}
		return nil, false
	}
	return nil, false
}

// ShotCount 项目中所有镜头的数量
func (p *ProjectData) ShotCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.Scenes {
		n += len(s.Shots)
	}
	return n
}
