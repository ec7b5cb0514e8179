package stubbackend

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"StoryToVideo-workspace/models"

	"golang.org/x/text/cases"
)

var (
	placeholderPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)
	referencePattern   = regexp.MustCompile(`\(\[Ref:\s*([^\]]+)\]\)`)
)

// PromptExpander 把提示词里的 [style_block] 替换成 core_style 的内容，
// 把 ([Ref: Name]) 替换成 character_references 中的描述
type PromptExpander struct {
	blocks     map[string]string
	refs       map[string]string
	foldedRefs map[string]string
}

func NewPromptExpander(coreStyle map[string]any, refs map[string]string) *PromptExpander {
	blocks := make(map[string]string, len(coreStyle))
	for name, content := range coreStyle {
		blocks[normalizeKey(name)] = flattenBlock(content)
	}
	foldedRefs := make(map[string]string, len(refs))
	for name, desc := range refs {
		foldedRefs[normalizeKey(name)] = desc
	}
	return &PromptExpander{blocks: blocks, refs: refs, foldedRefs: foldedRefs}
}

// flattenBlock 嵌套对象展开成 "k: v, k: v"，按 key 排序
func flattenBlock(content any) string {
	m, ok := content.(map[string]any)
	if !ok {
		return fmt.Sprint(content)
	}
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// [Universal Style Block] 和 [universal_style_block] 指向同一个块
var keyFolder = cases.Fold()

// normalizeKey 空格换成下划线后做 Unicode 大小写折叠，
// "Universal Style Block" 与 "universal_style_block" 视为同一个 key
func normalizeKey(s string) string {
	return keyFolder.String(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

func (e *PromptExpander) Expand(prompt string) string {
	if prompt == "" {
		return ""
	}
	return e.replaceReferences(e.replaceStyleBlocks(prompt))
}

func (e *PromptExpander) replaceStyleBlocks(prompt string) string {
	if len(e.blocks) == 0 {
		return prompt
	}
	return placeholderPattern.ReplaceAllStringFunc(prompt, func(m string) string {
		key := normalizeKey(m[1 : len(m)-1])
		if v, ok := e.blocks[key]; ok {
			return v
		}
		return m
	})
}

func (e *PromptExpander) replaceReferences(prompt string) string {
	if len(e.refs) == 0 {
		return prompt
	}
	return referencePattern.ReplaceAllStringFunc(prompt, func(m string) string {
		name := strings.TrimSpace(referencePattern.FindStringSubmatch(m)[1])
		if v, ok := e.refs[name]; ok {
			return v
		}
		if v, ok := e.foldedRefs[normalizeKey(name)]; ok {
			return v
		}
		return m
	})
}

// ExpandProject 原地展开项目里所有镜头的提示词
func ExpandProject(p *models.ProjectData) {
	e := NewPromptExpander(p.CoreStyle, p.CharacterReferences)
	for i := range p.Scenes {
		for j := range p.Scenes[i].Shots {
			shot := &p.Scenes[i].Shots[j]
			if shot.Keyframes != nil {
				shot.Keyframes.Start = e.Expand(shot.Keyframes.Start)
				shot.Keyframes.Middle = e.Expand(shot.Keyframes.Middle)
				shot.Keyframes.End = e.Expand(shot.Keyframes.End)
			}
			shot.VideoPrompt = e.Expand(shot.VideoPrompt)
		}
	}
}
