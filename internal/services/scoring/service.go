package scoring

import "math"

// Scoring constants for a finished memory game
const (
	// BaseScore is awarded for a perfect game: every pair matched on the first
	// attempt with no elapsed time
	BaseScore int64 = 10000
	// TimePenalty is deducted per elapsed second
	TimePenalty int64 = 10
	// MovePenalty is deducted per move beyond the minimum of one per pair
	MovePenalty int64 = 100
	// DefaultPairCount is the number of pairs on the board the game deals
	DefaultPairCount int64 = 8
)

// ComputeScore derives the score for a finished game.
//
// The result is BaseScore minus the time and excess-move penalties, floored
// at zero. movesMade below pairCount is not an error; the move penalty simply
// turns into a bonus. Intermediate values saturate at the int64 bounds, so
// huge telemetry clamps instead of wrapping.
func ComputeScore(pairCount, movesMade, elapsedSeconds int64) int64 {
	timePenalty := saturatingMul(TimePenalty, elapsedSeconds)
	movePenalty := saturatingMul(MovePenalty, saturatingSub(movesMade, pairCount))

	score := saturatingSub(saturatingSub(BaseScore, timePenalty), movePenalty)
	if score < 0 {
		return 0
	}
	return score
}

func saturatingSub(a, b int64) int64 {
	diff := a - b
	switch {
	case b > 0 && diff > a:
		return math.MinInt64
	case b < 0 && diff < a:
		return math.MaxInt64
	}
	return diff
}

func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	overflow := product/b != a ||
		(a == -1 && b == math.MinInt64) ||
		(b == -1 && a == math.MinInt64)
	if !overflow {
		return product
	}
	if (a > 0) == (b > 0) {
		return math.MaxInt64
	}
	return math.MinInt64
}
