package srs

import (
	"math"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// Forgetting curve constants. FACTOR is chosen so that R(S, S) = 0.9.
const (
	decay  = -0.5
	factor = 19.0 / 81.0

	minStability  = 0.1
	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// grade is the FSRS rating a review outcome maps to.
type grade int

const (
	gradeAgain grade = 1
	gradeGood  grade = 3
	gradeEasy  grade = 4
)

func gradeFor(outcome domain.Outcome) grade {
	if outcome == domain.OutcomeGood {
		return gradeGood
	}
	return gradeAgain
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}

// initialStability is the stability of a card after its first review.
func initialStability(w []float64, g grade) float64 {
	return math.Max(w[g-1], minStability)
}

// initialDifficulty is the difficulty of a card after its first review.
// Higher grades give lower difficulty.
func initialDifficulty(w []float64, g grade) float64 {
	return clampDifficulty(w[4] - math.Exp(w[5]*float64(g-1)) + 1)
}

// nextDifficulty moves difficulty up for failures and down for successes,
// then reverts it slightly toward the difficulty of an "easy" first review
// so it cannot drift to an extreme.
func nextDifficulty(w []float64, d float64, g grade) float64 {
	next := d - w[6]*float64(g-3)
	reverted := w[7]*initialDifficulty(w, gradeEasy) + (1-w[7])*next
	return clampDifficulty(reverted)
}

// retrievability is the probability of recall after elapsedDays for a
// memory of the given stability.
func retrievability(elapsedDays int, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+factor*float64(elapsedDays)/stability, decay)
}

// recallStability is the stability after a successful review in the Review
// state. Growth shrinks as stability rises (S^-w9) and as difficulty rises
// (11-d), and is larger when the card was closer to being forgotten.
func recallStability(w []float64, d, s, r float64) float64 {
	growth := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp((1-r)*w[10]) - 1)
	return s * (1 + growth)
}

// forgetStability is the stability after a lapse. It never exceeds the
// stability before the lapse.
func forgetStability(w []float64, d, s, r float64) float64 {
	next := w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp((1-r)*w[14])
	return math.Max(math.Min(next, s), minStability)
}

// shortTermStability is the stability after a same-session review in the
// Learning or Relearning state.
func shortTermStability(w []float64, s float64, g grade) float64 {
	return math.Max(s*math.Exp(w[17]*(float64(g)-3+w[18])), minStability)
}

// nextInterval converts stability into whole days such that the predicted
// recall at the next review equals the requested retention. The result is
// at least one day and at most maximumInterval.
func nextInterval(stability, requestRetention float64, maximumInterval int) int {
	raw := stability / factor * (math.Pow(requestRetention, 1/decay) - 1)
	days := int(math.Round(raw))
	if days < 1 {
		days = 1
	}
	if days > maximumInterval {
		days = maximumInterval
	}
	return days
}

// elapsedDaysSince returns whole days between the last review and now.
func elapsedDaysSince(lastReview *time.Time, now time.Time) int {
	if lastReview == nil {
		return 0
	}
	days := int(math.Floor(now.Sub(*lastReview).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// calculateNextCard applies one graded review to a copy of card.
//
// Good:
//   - New: stability and difficulty are initialized and the card goes
//     straight to Review with a day-scale interval.
//   - Learning/Relearning: short-term stability growth, then Review.
//   - Review: recall stability growth, stays Review.
//
// Bad:
//   - New: initialized with the "again" grade and moved to Learning.
//   - Learning: stays Learning with reduced stability.
//   - Review: forget stability, moved to Relearning.
//   - Relearning: stays Relearning with reduced stability.
//
// Every bad outcome increments lapses and schedules the card minutes from
// now. Every review increments reps and sets lastReview to now.
func calculateNextCard(
	card *domain.ReviewCard,
	outcome domain.Outcome,
	now time.Time,
	sp domain.SchedulerParams,
	params *Params,
) *domain.ReviewCard {
	w := sp.Weights
	g := gradeFor(outcome)
	now = now.UTC()

	next := card.Clone()
	next.ElapsedDays = elapsedDaysSince(card.LastReview, now)
	r := retrievability(next.ElapsedDays, card.Stability)

	fresh := card.State == domain.CardStateNew || card.Stability <= 0
	switch {
	case fresh:
		next.Stability = initialStability(w, g)
		next.Difficulty = initialDifficulty(w, g)
	case card.State == domain.CardStateReview && g == gradeGood:
		next.Stability = recallStability(w, card.Difficulty, card.Stability, r)
		next.Difficulty = nextDifficulty(w, card.Difficulty, g)
	case card.State == domain.CardStateReview:
		next.Stability = forgetStability(w, card.Difficulty, card.Stability, r)
		next.Difficulty = nextDifficulty(w, card.Difficulty, g)
	default:
		next.Stability = shortTermStability(w, card.Stability, g)
		next.Difficulty = nextDifficulty(w, card.Difficulty, g)
	}

	next.Reps++
	if g == gradeGood {
		next.State = domain.CardStateReview
		next.ScheduledDays = nextInterval(next.Stability, sp.RequestRetention, sp.MaximumInterval)
		next.Due = now.AddDate(0, 0, next.ScheduledDays)
	} else {
		next.Lapses++
		next.ScheduledDays = 0
		delay := params.AgainDelay
		switch card.State {
		case domain.CardStateNew:
			next.State = domain.CardStateLearning
			delay = params.NewAgainDelay
		case domain.CardStateReview:
			next.State = domain.CardStateRelearning
		}
		next.Due = now.Add(delay)
	}

	lastReview := now
	next.LastReview = &lastReview
	return next
}
