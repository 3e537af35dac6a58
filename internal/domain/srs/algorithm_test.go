package srs

import (
	"math"
	"testing"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

const tolerance = 1e-4

func approx(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestNextInterval(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		stability float64
		retention float64
		maximum   int
		expected  int
	}{
		{"interval equals stability at 0.9 retention", 3.1262, 0.9, 36500, 3},
		{"rounds to nearest day", 11.388, 0.9, 36500, 11},
		{"lower retention gives longer interval", 3.1262, 0.8, 36500, 7},
		{"never below one day", 0.2, 0.9, 36500, 1},
		{"capped at maximum", 90000, 0.9, 36500, 36500},
		{"custom maximum", 400, 0.9, 180, 180},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextInterval(tc.stability, tc.retention, tc.maximum)
			if got != tc.expected {
				t.Errorf("nextInterval(%v, %v, %d) = %d, want %d",
					tc.stability, tc.retention, tc.maximum, got, tc.expected)
			}
		})
	}
}

func TestRetrievability(t *testing.T) {
	t.Parallel()
	if r := retrievability(0, 5); r != 1 {
		t.Errorf("expected full recall at zero elapsed days, got %v", r)
	}
	if r := retrievability(10, 10); !approx(r, 0.9) {
		t.Errorf("expected 0.9 recall after S days, got %v", r)
	}
	if r := retrievability(3, 3.1262); !approx(r, 0.903471) {
		t.Errorf("unexpected recall %v", r)
	}
}

func TestDifficultyFormulas(t *testing.T) {
	t.Parallel()
	w := DefaultWeights[:]

	if d := initialDifficulty(w, gradeGood); !approx(d, 5.314578) {
		t.Errorf("initial difficulty for good = %v", d)
	}
	if d := initialDifficulty(w, gradeAgain); !approx(d, 7.2102) {
		t.Errorf("initial difficulty for again = %v", d)
	}
	if d := nextDifficulty(w, 9.99, gradeAgain); d > maxDifficulty {
		t.Errorf("difficulty must be clamped, got %v", d)
	}
	if d := nextDifficulty(w, 5, gradeAgain); d <= 5 {
		t.Errorf("a failure must raise difficulty, got %v", d)
	}
}

// TestCalculateNextCard checks known (card, outcome, now) -> (due, stability)
// triples for the default weights.
func TestCalculateNextCard(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	sp := params.Scheduler
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	threeDaysAgo := now.AddDate(0, 0, -3)
	goodDifficulty := initialDifficulty(sp.Weights, gradeGood)

	testCases := []struct {
		name           string
		card           domain.ReviewCard
		outcome        domain.Outcome
		wantState      domain.CardState
		wantStability  float64
		wantDifficulty float64
		wantScheduled  int
		wantDue        time.Time
		wantElapsed    int
		wantLapses     int
	}{
		{
			name:           "new card graded good",
			card:           domain.ReviewCard{State: domain.CardStateNew, Due: now},
			outcome:        domain.OutcomeGood,
			wantState:      domain.CardStateReview,
			wantStability:  3.1262,
			wantDifficulty: 5.314578,
			wantScheduled:  3,
			wantDue:        now.AddDate(0, 0, 3),
		},
		{
			name:           "new card graded bad",
			card:           domain.ReviewCard{State: domain.CardStateNew, Due: now},
			outcome:        domain.OutcomeBad,
			wantState:      domain.CardStateLearning,
			wantStability:  0.4072,
			wantDifficulty: 7.2102,
			wantDue:        now.Add(time.Minute),
			wantLapses:     1,
		},
		{
			name: "review card recalled after three days",
			card: domain.ReviewCard{
				State: domain.CardStateReview, Stability: 3.1262, Difficulty: goodDifficulty,
				ScheduledDays: 3, Reps: 1, LastReview: &threeDaysAgo,
			},
			outcome:        domain.OutcomeGood,
			wantState:      domain.CardStateReview,
			wantStability:  11.388439,
			wantDifficulty: 5.267036,
			wantScheduled:  11,
			wantDue:        now.AddDate(0, 0, 11),
			wantElapsed:    3,
		},
		{
			name: "review card forgotten after three days",
			card: domain.ReviewCard{
				State: domain.CardStateReview, Stability: 3.1262, Difficulty: goodDifficulty,
				ScheduledDays: 3, Reps: 1, LastReview: &threeDaysAgo,
			},
			outcome:        domain.OutcomeBad,
			wantState:      domain.CardStateRelearning,
			wantStability:  1.096375,
			wantDifficulty: 7.347389,
			wantDue:        now.Add(5 * time.Minute),
			wantElapsed:    3,
			wantLapses:     1,
		},
		{
			name: "relearning card recalled",
			card: domain.ReviewCard{
				State: domain.CardStateRelearning, Stability: 1.0963747803713895,
				Difficulty: 7.347388870345075, Reps: 2, Lapses: 1, LastReview: &now,
			},
			outcome:        domain.OutcomeGood,
			wantState:      domain.CardStateReview,
			wantStability:  1.525911,
			wantDifficulty: 7.252279,
			wantScheduled:  2,
			wantDue:        now.AddDate(0, 0, 2),
			wantLapses:     1,
		},
		{
			name: "learning card failed again",
			card: domain.ReviewCard{
				State: domain.CardStateLearning, Stability: 0.4072, Difficulty: 7.2102,
				Reps: 1, Lapses: 1, LastReview: &now,
			},
			outcome:        domain.OutcomeBad,
			wantState:      domain.CardStateLearning,
			wantStability:  0.207076,
			wantDifficulty: 9.198654,
			wantDue:        now.Add(5 * time.Minute),
			wantLapses:     2,
		},
		{
			name: "learning card recalled",
			card: domain.ReviewCard{
				State: domain.CardStateLearning, Stability: 0.4072, Difficulty: 7.2102,
				Reps: 1, Lapses: 1, LastReview: &now,
			},
			outcome:        domain.OutcomeGood,
			wantState:      domain.CardStateReview,
			wantStability:  0.566732,
			wantDifficulty: 7.118300,
			wantScheduled:  1,
			wantDue:        now.AddDate(0, 0, 1),
			wantLapses:     1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.card
			got := calculateNextCard(&tc.card, tc.outcome, now, sp, params)

			if got.State != tc.wantState {
				t.Errorf("state = %s, want %s", got.State, tc.wantState)
			}
			if !approx(got.Stability, tc.wantStability) {
				t.Errorf("stability = %v, want %v", got.Stability, tc.wantStability)
			}
			if !approx(got.Difficulty, tc.wantDifficulty) {
				t.Errorf("difficulty = %v, want %v", got.Difficulty, tc.wantDifficulty)
			}
			if got.ScheduledDays != tc.wantScheduled {
				t.Errorf("scheduledDays = %d, want %d", got.ScheduledDays, tc.wantScheduled)
			}
			if !got.Due.Equal(tc.wantDue) {
				t.Errorf("due = %v, want %v", got.Due, tc.wantDue)
			}
			if got.ElapsedDays != tc.wantElapsed {
				t.Errorf("elapsedDays = %d, want %d", got.ElapsedDays, tc.wantElapsed)
			}
			if got.Lapses != tc.wantLapses {
				t.Errorf("lapses = %d, want %d", got.Lapses, tc.wantLapses)
			}
			if got.Reps != before.Reps+1 {
				t.Errorf("reps = %d, want %d", got.Reps, before.Reps+1)
			}
			if got.LastReview == nil || !got.LastReview.Equal(now) {
				t.Errorf("lastReview = %v, want %v", got.LastReview, now)
			}
			if tc.card.Reps != before.Reps || tc.card.State != before.State {
				t.Error("input card must not be modified")
			}
		})
	}
}

func TestForgetStabilityNeverExceedsPrevious(t *testing.T) {
	t.Parallel()
	w := DefaultWeights[:]
	for _, s := range []float64{0.5, 3, 30, 300, 3000} {
		for _, d := range []float64{1, 5, 10} {
			if got := forgetStability(w, d, s, 0.5); got > s {
				t.Errorf("forgetStability(d=%v, s=%v) = %v exceeds previous stability", d, s, got)
			}
		}
	}
}

func TestRecallStabilityDiminishingReturns(t *testing.T) {
	t.Parallel()
	w := DefaultWeights[:]
	low := recallStability(w, 5, 2, 0.9) / 2
	high := recallStability(w, 5, 200, 0.9) / 200
	if low <= high {
		t.Errorf("expected relative growth to shrink as stability rises: %v <= %v", low, high)
	}
}
