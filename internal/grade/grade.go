// Package grade maps guesses against ground truth to scores and
// messages. Everything here is a pure function of its inputs; the
// session layer owns all state and persistence.
package grade

import "github.com/velimir/blunderlab/internal/oracle"

// FallbackFeedback is shown for a wrong guess when no evaluation
// sample is available (oracle down or not yet initialized). The
// session never blocks the player waiting for one.
const FallbackFeedback = "That's not the blunder, try again"

// MoverScore returns the evaluation from the perspective of the player
// who just moved. Oracle samples are always relative to the side to
// move in the evaluated position, so judging the quality of the move
// that produced that position requires exactly one negation. Every
// call site that needs the flip goes through here.
func MoverScore(s *oracle.Sample) int {
	return -s.Score
}

// moverMatedBy reports a forced loss for the player who just moved:
// the side to move in the post-move position delivers mate.
func moverMatedBy(s *oracle.Sample) bool {
	return s.MateDistance > 0
}

// Severity classes for rating verdicts.
type Severity int

const (
	SeverityGreat Severity = iota // difference <= 100
	SeverityGood                  // difference <= 300
	SeverityPoor
)

// RatingVerdict is the outcome of one rating guess.
type RatingVerdict struct {
	Difference int
	NewStreak  int
	NewBest    int
	Message    string
	Severity   Severity
}

// ratingBands are evaluated in order; first match wins.
var ratingBands = []struct {
	limit    int
	message  string
	severity Severity
}{
	{50, "Near-exact guess!", SeverityGreat},
	{100, "Excellent guess!", SeverityGreat},
	{200, "Very close!", SeverityGood},
	{300, "Not bad", SeverityGood},
	{500, "Could be closer", SeverityPoor},
}

// RateGuess grades a numeric rating guess against the blunderer's
// actual rating. The streak extends while the guess lands within 200
// points and resets otherwise.
func RateGuess(guess, actual, priorStreak, priorBest int) RatingVerdict {
	diff := guess - actual
	if diff < 0 {
		diff = -diff
	}

	streak := 0
	if diff <= 200 {
		streak = priorStreak + 1
	}
	best := priorBest
	if streak > best {
		best = streak
	}

	v := RatingVerdict{
		Difference: diff,
		NewStreak:  streak,
		NewBest:    best,
		Message:    "Way off",
		Severity:   SeverityPoor,
	}
	for _, band := range ratingBands {
		if diff <= band.limit {
			v.Message = band.message
			v.Severity = band.severity
			break
		}
	}
	return v
}

// lossBands map centipawn loss to points; ascending, first match wins.
var lossBands = []struct {
	limit  int
	points int
}{
	{0, 100},
	{25, 90},
	{50, 75},
	{100, 60},
	{200, 40},
	{400, 20},
}

// MoveQuality scores the player's free-play move from 0 to 100.
// Playing the engine's best move is always a perfect score regardless
// of evaluation noise; otherwise the score is monotonically
// non-increasing in centipawn loss. Both samples must come from
// post-move positions searched at equal depth.
func MoveQuality(userEval, bestEval *oracle.Sample, userMove, bestMove string) int {
	if userMove != "" && userMove == bestMove {
		return 100
	}
	if userEval == nil || bestEval == nil {
		return 0
	}

	loss := MoverScore(bestEval) - MoverScore(userEval)
	for _, band := range lossBands {
		if loss <= band.limit {
			return band.points
		}
	}
	return 0
}

// DescribeMistake classifies the player's wrong blunder-guess against
// the historical blunder. Both samples are taken immediately after a
// move by the same player, so their mover-perspective scores are
// directly comparable. Mate outcomes take priority over the numeric
// difference.
func DescribeMistake(userEval, blunderEval *oracle.Sample) string {
	if userEval == nil || blunderEval == nil {
		return FallbackFeedback
	}

	if moverMatedBy(userEval) {
		return "That move still loses by force, just like the game"
	}
	if moverMatedBy(blunderEval) {
		return "Not the game move, but you avoided the disaster"
	}

	diff := MoverScore(userEval) - MoverScore(blunderEval)
	switch {
	case diff > 200:
		return "Not the game move, and clearly better than the blunder"
	case diff > 50:
		return "Not the game move, slightly better than the blunder"
	case diff > -50:
		return "Not the game move, and about as bad"
	case diff > -200:
		return "Also a mistake, but the game saw a worse blunder"
	default:
		return "Also a blunder, just a different one"
	}
}
