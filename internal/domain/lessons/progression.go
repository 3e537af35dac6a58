package lessons

import "github.com/phrazzld/kotoba-api/internal/domain"

// ShouldAdvance reports whether a learner at lastLessonPosition has
// introduced every subject of a level whose highest position is
// maxLessonPosition. A level with no content never advances.
func ShouldAdvance(lastLessonPosition, maxLessonPosition int) bool {
	if maxLessonPosition == domain.BeforeFirstPosition {
		return false
	}
	return lastLessonPosition >= maxLessonPosition
}

// Advance moves the learner to the next level and resets the lesson
// position. Levels only ever increase.
func Advance(p *domain.LearnerProgress) {
	p.Level++
	p.LastLessonPosition = domain.BeforeFirstPosition
}
