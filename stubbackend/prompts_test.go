package stubbackend

import (
	"testing"

	"StoryToVideo-workspace/models"
)

func TestPromptExpander(t *testing.T) {
	e := NewPromptExpander(
		map[string]any{
			"universal_style_block": map[string]any{"lighting": "soft", "lens": "35mm"},
			"palette":               "teal and orange",
			"ΔΡΌΜΟΣ":                "cobbled street",
		},
		map[string]string{"alice": "a red-haired girl", "Old Tom": "a grey fisherman"},
	)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "snake case block", in: "city at dusk, [universal_style_block]", want: "city at dusk, lens: 35mm, lighting: soft"},
		{name: "title case block", in: "[Universal Style Block]", want: "lens: 35mm, lighting: soft"},
		{name: "scalar block", in: "[palette] tones", want: "teal and orange tones"},
		{name: "case folded block", in: "[δρόμος] at night", want: "cobbled street at night"},
		{name: "unknown block kept", in: "[unknown] sky", want: "[unknown] sky"},
		{name: "exact reference", in: "([Ref: Old Tom]) rows", want: "a grey fisherman rows"},
		{name: "normalized reference", in: "([Ref: Alice]) waves", want: "a red-haired girl waves"},
		{name: "upper case reference", in: "([Ref: OLD TOM]) nods", want: "a grey fisherman nods"},
		{name: "unknown reference kept", in: "([Ref: Bob]) waits", want: "([Ref: Bob]) waits"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Expand(tc.in); got != tc.want {
				t.Fatalf("Expand(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExpandProject(t *testing.T) {
	p := &models.ProjectData{
		Project:             "P",
		CoreStyle:           map[string]any{"mood": "melancholic"},
		CharacterReferences: map[string]string{"hero": "a tall knight"},
		Scenes: []models.Scene{{
			SceneID: "S1",
			Shots: []models.Shot{
				{ShotID: "T1", Keyframes: &models.KeyframePrompts{Start: "([Ref: Hero]) stands", End: "[mood]"}, VideoPrompt: "[Mood] walk"},
				{ShotID: "T2"},
			},
		}},
	}
	ExpandProject(p)
	shot := p.Scenes[0].Shots[0]
	if shot.Keyframes.Start != "a tall knight stands" || shot.Keyframes.End != "melancholic" || shot.Keyframes.Middle != "" {
		t.Fatalf("unexpected keyframes %+v", shot.Keyframes)
	}
	if shot.VideoPrompt != "melancholic walk" {
		t.Fatalf("unexpected video prompt %q", shot.VideoPrompt)
	}
	if p.Scenes[0].Shots[1].Keyframes != nil {
		t.Fatal("expected shot without prompts to stay empty")
	}
}

func TestObjectKeySanitizes(t *testing.T) {
	got := ObjectKey("My Film!", "scene/1", "..", "S1_T1_start.png")
	if got != "My_Film/scene1/_/S1_T1_start.png" {
		t.Fatalf("unexpected key %q", got)
	}
}
