// Package progress computes completion percentages for modules and courses.
// Everything here is pure: no I/O, no mutation, fully deterministic.
package progress

import (
	"math"

	"github.com/pathgenius/pathgenius/internal/course"
)

// PassThreshold is the quiz score at or above which a module counts as
// completed.
const PassThreshold = 70

// ModulePercent returns the rounded percentage of completed topics.
// Duplicate and out-of-range indices are ignored so the result is safe to
// call on un-normalized documents. A module with no topics is 0%.
func ModulePercent(topicCount int, completed []int) int {
	if topicCount <= 0 {
		return 0
	}
	seen := make(map[int]bool, len(completed))
	n := 0
	for _, i := range completed {
		if i < 0 || i >= topicCount || seen[i] {
			continue
		}
		seen[i] = true
		n++
	}
	return int(math.Round(100 * float64(n) / float64(topicCount)))
}

// CoursePercent returns the rounded mean of the module progress values.
// An empty module list is 0%.
func CoursePercent(modules []course.Module) int {
	if len(modules) == 0 {
		return 0
	}
	sum := 0
	for _, m := range modules {
		sum += m.Progress
	}
	return int(math.Round(float64(sum) / float64(len(modules))))
}

// CompletesModule reports whether a quiz score marks the module complete.
func CompletesModule(score int) bool {
	return score >= PassThreshold
}
