// Package assessment runs the diagnostic assessment flow: AI-generated
// short-answer questions with a preset fallback bank, and completion-based
// evaluation when the backend cannot score a submission.
package assessment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/pathgenius/pathgenius/internal/generation"
)

// presetSet is one category of fallback questions, matched against the
// learning goal by keyword.
type presetSet struct {
	Category  string   `yaml:"category"`
	Keywords  []string `yaml:"keywords"`
	Questions []string `yaml:"questions"`
}

// Bank is the preset question bank used when generation is unavailable.
// Question text may contain a {topic} placeholder substituted with the
// learner's goal.
type Bank struct {
	sets   []presetSet
	folder cases.Caser
	mu     sync.RWMutex
}

// NewBank creates a bank seeded with the built-in presets.
func NewBank() *Bank {
	return &Bank{
		sets:   defaultPresets(),
		folder: cases.Fold(),
	}
}

// LoadDir merges preset sets from every .yaml file under dir. Invalid
// files are skipped with a warning left to the caller's logger; a missing
// directory leaves the built-in presets in place.
func (b *Bank) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read bank dir: %w", err)
	}

	var loaded []presetSet
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var set presetSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if len(set.Questions) > 0 {
			loaded = append(loaded, set)
		}
	}

	if len(loaded) > 0 {
		b.mu.Lock()
		// Loaded sets take precedence; the generic built-in stays last.
		b.sets = append(loaded, defaultGeneric())
		b.mu.Unlock()
	}
	return nil
}

// QuestionsFor returns preset questions matching the learning goal. The
// goal and keywords are case-folded before matching; the last set (no
// keywords) acts as the generic fallback.
func (b *Bank) QuestionsFor(goal string) []generation.AssessmentQuestion {
	b.mu.RLock()
	defer b.mu.RUnlock()

	folded := b.folder.String(goal)
	for _, set := range b.sets {
		for _, kw := range set.Keywords {
			if strings.Contains(folded, b.folder.String(kw)) {
				return render(set.Questions, goal)
			}
		}
	}

	// No keyword match: generic questions.
	for _, set := range b.sets {
		if len(set.Keywords) == 0 {
			return render(set.Questions, goal)
		}
	}
	return nil
}

func render(templates []string, goal string) []generation.AssessmentQuestion {
	questions := make([]generation.AssessmentQuestion, len(templates))
	for i, t := range templates {
		questions[i] = generation.AssessmentQuestion{
			ID:       i + 1,
			Question: strings.ReplaceAll(t, "{topic}", goal),
		}
	}
	return questions
}

func defaultPresets() []presetSet {
	return []presetSet{
		{
			Category: "programming",
			Keywords: []string{"python", "coding", "programming"},
			Questions: []string{
				"What are variables in {topic} and how do you define them?",
				"Explain the concept of functions in {topic} and provide a simple example.",
				"What are data structures in {topic} and name a few common ones.",
				"Explain the difference between loops and conditionals in {topic}.",
				"What is error handling in {topic} and why is it important?",
			},
		},
		{
			Category: "web",
			Keywords: []string{"web", "html", "css", "javascript"},
			Questions: []string{
				"What is the basic structure of an HTML document?",
				"Explain the difference between inline and block elements in HTML/CSS.",
				"What is the CSS box model and what are its components?",
				"Explain the concept of DOM manipulation in JavaScript.",
				"What are responsive design principles and why are they important?",
			},
		},
		{
			Category: "data",
			Keywords: []string{"data", "machine learning", "ai"},
			Questions: []string{
				"What is the difference between supervised and unsupervised learning?",
				"Explain what data preprocessing is and why it's important.",
				"What is overfitting and how can it be prevented?",
				"Explain the concept of feature selection in machine learning.",
				"What are common evaluation metrics for classification models?",
			},
		},
		defaultGeneric(),
	}
}

func defaultGeneric() presetSet {
	return presetSet{
		Category: "generic",
		Questions: []string{
			"What are the foundational concepts of {topic}?",
			"Explain a practical application of {topic} in the real world.",
			"What are the key skills needed to excel in {topic}?",
			"Describe the evolution of {topic} over the past few years.",
			"What resources would you recommend for someone starting to learn {topic}?",
		},
	}
}
