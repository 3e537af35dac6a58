// Package queue decides which of a learner's review cards is due next.
//
// A card is eligible when it falls due within Tolerance of now, or when it
// falls due anywhere inside the same Window-sized block of wall-clock time
// as now. Blocks batch reviews into session-sized groups instead of
// releasing cards one at a time as they come due.
package queue

import (
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// Defaults for the selector.
const (
	DefaultTolerance = 10 * time.Minute
	DefaultWindow    = 2 * time.Hour
)

// Selector holds the eligibility rule. The zero value is not usable; use
// NewSelector or DefaultSelector.
type Selector struct {
	tolerance time.Duration
	window    time.Duration
	location  *time.Location
}

// NewSelector creates a Selector. Blocks are aligned to midnight in loc,
// so with a 2h window they start at 00:00, 02:00, 04:00 and so on.
func NewSelector(tolerance, window time.Duration, loc *time.Location) *Selector {
	if tolerance < 0 {
		tolerance = 0
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Selector{tolerance: tolerance, window: window, location: loc}
}

// DefaultSelector uses a 10 minute tolerance and 2 hour UTC blocks.
func DefaultSelector() *Selector {
	return NewSelector(DefaultTolerance, DefaultWindow, time.UTC)
}

// BlockStart returns the start of the window block containing t. Blocks
// are floored on the wall clock, so they keep their 00:00, 02:00, ...
// boundaries on days with a DST transition.
func (s *Selector) BlockStart(t time.Time) time.Time {
	local := t.In(s.location)
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	floor := clock - clock%s.window
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, int(floor), s.location)
}

// Eligible reports whether card may be reviewed at now.
func (s *Selector) Eligible(card *domain.ReviewCard, now time.Time) bool {
	if card.Due.Sub(now) <= s.tolerance {
		return true
	}
	return s.BlockStart(card.Due).Equal(s.BlockStart(now))
}

// SelectNextDue returns the eligible card with the earliest due time,
// breaking ties by subject ID and then aspect (meaning first). It returns
// false when no card is eligible. The returned pointer refers into cards.
func (s *Selector) SelectNextDue(cards []domain.ReviewCard, now time.Time) (*domain.ReviewCard, bool) {
	var best *domain.ReviewCard
	for i := range cards {
		c := &cards[i]
		if !s.Eligible(c, now) {
			continue
		}
		if best == nil || c.Less(best) {
			best = c
		}
	}
	return best, best != nil
}

// DueCount returns how many cards are eligible at now.
func (s *Selector) DueCount(cards []domain.ReviewCard, now time.Time) int {
	n := 0
	for i := range cards {
		if s.Eligible(&cards[i], now) {
			n++
		}
	}
	return n
}
