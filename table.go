package main

import (
	"strings"

	"StoryToVideo-workspace/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// inspect 表格的列，顺序即输出顺序
var shotColumns = []table.ColumnConfig{
	{Name: "Scene", AlignHeader: text.AlignLeft},
	{Name: "Shot", AlignHeader: text.AlignLeft},
	{Name: "Order", Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	{Name: "Title", AlignHeader: text.AlignLeft, WidthMax: 32, WidthMaxEnforcer: truncate},
	{Name: "Keyframes", AlignHeader: text.AlignLeft},
	{Name: "Video", AlignHeader: text.AlignLeft, WidthMax: 48, WidthMaxEnforcer: truncate},
}

// renderShotTable 每个镜头一行，页脚给出镜头总数
func renderShotTable(project *models.ProjectData) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(shotColumns))
	for i, col := range shotColumns {
		header[i] = col.Name
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(shotColumns)

	for _, scene := range project.Scenes {
		for _, shot := range scene.Shots {
			tw.AppendRow(table.Row{
				scene.SceneID,
				shot.ShotID,
				shot.OrderIndex,
				shot.Title(),
				keyframeSummary(shot),
				videoSummary(shot),
			})
		}
	}
	tw.AppendFooter(table.Row{"", "", project.ShotCount(), "shots"})
	return tw.Render()
}

func keyframeSummary(shot models.Shot) string {
	var frames []string
	for _, f := range models.Frames {
		if shot.Keyframes.Prompt(f) != "" {
			frames = append(frames, string(f))
		}
	}
	if len(frames) == 0 {
		return "-"
	}
	return strings.Join(frames, ", ")
}

func videoSummary(shot models.Shot) string {
	if !shot.HasVideo() {
		return "-"
	}
	return shot.VideoPrompt
}

// truncate 按 rune 截断，超出部分用省略号表示
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
