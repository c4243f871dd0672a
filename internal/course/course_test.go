package course

import (
	"reflect"
	"testing"
)

func TestTopicIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		topic Topic
		want  bool
	}{
		{"empty", Topic{Title: "Variables"}, true},
		{"has content", Topic{Content: "# Variables"}, false},
		{"has video", Topic{VideoID: "abc123"}, false},
		{"has both", Topic{Content: "# Variables", VideoID: "abc123"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.topic.Incomplete(); got != tt.want {
				t.Errorf("Incomplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModuleByID(t *testing.T) {
	c := Course{Modules: []Module{{ID: 1}, {ID: 3}, {ID: 7}}}

	mod, idx, ok := c.ModuleByID(3)
	if !ok {
		t.Fatal("ModuleByID(3) not found")
	}
	if mod.ID != 3 || idx != 1 {
		t.Errorf("ModuleByID(3) = (id=%d, idx=%d), want (3, 1)", mod.ID, idx)
	}

	if _, _, ok := c.ModuleByID(99); ok {
		t.Error("ModuleByID(99) should not be found")
	}
}

func TestMissingTopics(t *testing.T) {
	m := Module{Topics: []Topic{
		{Title: "a", Content: "done"},
		{Title: "b"},
		{Title: "c", VideoID: "v1"},
		{Title: "d"},
	}}

	got := m.MissingTopics()
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingTopics() = %v, want %v", got, want)
	}
}

func TestContent_Union(t *testing.T) {
	tests := []struct {
		name   string
		module Module
		want   ContentKind
	}{
		{
			"multiple topics",
			Module{Topics: []Topic{{Title: "a"}, {Title: "b"}}},
			KindTopics,
		},
		{
			"single video topic",
			Module{Topics: []Topic{{Title: "a", VideoID: "v1"}}},
			KindVideo,
		},
		{
			"single content topic",
			Module{Topics: []Topic{{Title: "a", Content: "# a"}}},
			KindSingle,
		},
		{
			"single topic with content and video is not video",
			Module{Topics: []Topic{{Title: "a", Content: "# a", VideoID: "v1"}}},
			KindSingle,
		},
		{
			"no topics",
			Module{},
			KindTopics,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.module.Content()
			if got.Kind != tt.want {
				t.Errorf("Content().Kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}
}

func TestContent_VideoCarriesID(t *testing.T) {
	m := Module{Topics: []Topic{{Title: "intro", VideoID: "v42"}}}
	got := m.Content()
	if got.VideoID != "v42" {
		t.Errorf("Content().VideoID = %q, want v42", got.VideoID)
	}
	if got.Content != "" {
		t.Errorf("Content().Content = %q, want empty", got.Content)
	}
}

func TestNormalizeModule_Defaults(t *testing.T) {
	m := Module{ID: 2}
	NormalizeModule(&m)

	if m.Title != "Module 2" {
		t.Errorf("Title = %q, want Module 2", m.Title)
	}
	if m.Description != "No description available." {
		t.Errorf("Description = %q, want default", m.Description)
	}
}

func TestNormalizeModule_KeepsExisting(t *testing.T) {
	m := Module{ID: 2, Title: "Loops", Description: "All about loops."}
	NormalizeModule(&m)

	if m.Title != "Loops" {
		t.Errorf("Title = %q, want Loops", m.Title)
	}
	if m.Description != "All about loops." {
		t.Errorf("Description = %q, want original", m.Description)
	}
}

func TestNormalizeModule_ClampsProgress(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{55, 55},
		{150, 100},
	}

	for _, tt := range tests {
		m := Module{ID: 1, Progress: tt.in}
		NormalizeModule(&m)
		if m.Progress != tt.want {
			t.Errorf("NormalizeModule progress %d -> %d, want %d", tt.in, m.Progress, tt.want)
		}
	}
}

func TestNormalizeModule_RepairsCompletedSet(t *testing.T) {
	m := Module{
		ID:              1,
		Topics:          []Topic{{}, {}, {}},
		CompletedTopics: []int{2, 0, 2, -1, 5, 0},
	}
	NormalizeModule(&m)

	want := []int{0, 2}
	if !reflect.DeepEqual(m.CompletedTopics, want) {
		t.Errorf("CompletedTopics = %v, want %v", m.CompletedTopics, want)
	}
}

func TestIsTopicCompleted(t *testing.T) {
	m := Module{CompletedTopics: []int{0, 2}}
	if !m.IsTopicCompleted(0) {
		t.Error("IsTopicCompleted(0) = false, want true")
	}
	if m.IsTopicCompleted(1) {
		t.Error("IsTopicCompleted(1) = true, want false")
	}
}
