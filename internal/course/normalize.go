package course

import (
	"fmt"
	"sort"
)

// ContentKind identifies the shape of a module's content, resolved once at
// load time instead of sniffing field presence at every render.
type ContentKind string

const (
	KindTopics ContentKind = "topics"
	KindSingle ContentKind = "single"
	KindVideo  ContentKind = "video"
)

// ModuleContent is the closed union of module content shapes.
type ModuleContent struct {
	Kind    ContentKind `json:"kind"`
	Topics  []Topic     `json:"topics,omitempty"`
	Content string      `json:"content,omitempty"`
	VideoID string      `json:"videoId,omitempty"`
}

// Content resolves the module's content shape. A module with an ordered
// topic list is KindTopics; a module whose single topic carries only a video
// is KindVideo; anything else collapses to KindSingle.
func (m *Module) Content() ModuleContent {
	switch {
	case len(m.Topics) > 1:
		return ModuleContent{Kind: KindTopics, Topics: m.Topics}
	case len(m.Topics) == 1 && m.Topics[0].VideoID != "" && m.Topics[0].Content == "":
		return ModuleContent{Kind: KindVideo, VideoID: m.Topics[0].VideoID}
	case len(m.Topics) == 1:
		return ModuleContent{Kind: KindSingle, Content: m.Topics[0].Content}
	default:
		return ModuleContent{Kind: KindTopics}
	}
}

// NormalizeModule fills defaults for fields older course documents may lack
// and repairs the completed-topic set: duplicates removed, out-of-range
// indices dropped, order made deterministic.
func NormalizeModule(m *Module) {
	if m.Title == "" {
		m.Title = fmt.Sprintf("Module %d", m.ID)
	}
	if m.Description == "" {
		m.Description = "No description available."
	}
	if m.Progress < 0 {
		m.Progress = 0
	}
	if m.Progress > 100 {
		m.Progress = 100
	}
	m.CompletedTopics = normalizeCompleted(m.CompletedTopics, len(m.Topics))
}

func normalizeCompleted(indices []int, topicCount int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= topicCount || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
