package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"StoryToVideo-workspace/models"
)

const inspectFixture = `{
  "project": "Lighthouse",
  "core_style": {"tone": "foggy"},
  "scenes": [{
    "scene_id": "S1",
    "shots": [
      {"shot_id": "T1", "name": "Arrival", "nano_banana_pro_prompts": {"start": "[tone] shore", "end": "keeper waves"}, "veo_3_1_prompt": "slow push in"},
      {"shot_id": "T2", "description": "Empty stairwell"}
    ]
  }]
}`

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestInspectListsShots(t *testing.T) {
	out, err := runCommand(t, "inspect", writeFixture(t, inspectFixture))
	if err != nil {
		t.Fatalf("inspect returned error: %v", err)
	}
	for _, want := range []string{"Project: Lighthouse", "Scenes: 1  Shots: 2", "Arrival", "start, end", "slow push in", "Empty stairwell"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestInspectRejectsInvalidProject(t *testing.T) {
	if _, err := runCommand(t, "inspect", writeFixture(t, `{"project": "P", "scenes": [{"shots": []}]}`)); err == nil {
		t.Fatal("expected error for scene without id")
	}
	if _, err := runCommand(t, "inspect"); err == nil {
		t.Fatal("expected error without file argument")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestRenderShotTable(t *testing.T) {
	project := &models.ProjectData{
		Project: "P",
		Scenes: []models.Scene{{
			SceneID: "S1",
			Shots: []models.Shot{
				{ShotID: "T1", OrderIndex: 12, Name: strings.Repeat("long title ", 5), VideoPrompt: "pan"},
				{ShotID: "T2", Keyframes: &models.KeyframePrompts{Middle: "noon"}},
			},
		}},
	}
	out := renderShotTable(project)
	for _, want := range []string{"SCENE", "KEYFRAMES", "│    12 │", "long title long title long titl…", "middle", "pan", "SHOTS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("long title ", 4)) {
		t.Fatalf("expected title to be truncated:\n%s", out)
	}
}
