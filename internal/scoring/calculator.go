// Package scoring turns reported match statistics into a final score and
// records it against a player's history.
package scoring

const (
	elapsedPenalty = 2
	damagePenalty  = 5

	// Elapsed time below a level's floor is replaced by floor*penaltyFactor.
	penaltyFactor = 2
	defaultFloor  = 5
)

var basePoints = map[int]int{
	1: 1000,
	2: 3000,
	3: 6000,
}

// Minimum plausible completion time per level, in seconds.
var minElapsed = map[int]int{
	1: 5,
	2: 15,
	3: 30,
}

// Stats are the match statistics reported by the client.
type Stats struct {
	ElapsedSeconds int
	DamageTaken    int
	LevelReached   int
}

// Result is the outcome of scoring a match.
type Result struct {
	Score int
	// Elapsed is the elapsed time actually used, after the floor check.
	Elapsed int
	// Flagged is set when the reported time was below the level floor.
	Flagged bool
	Floor   int
}

// BasePoints returns the points awarded for reaching level; unknown levels
// are worth nothing.
func BasePoints(level int) int {
	return basePoints[level]
}

// Floor returns the minimum plausible completion time for level.
func Floor(level int) int {
	if f, ok := minElapsed[level]; ok {
		return f
	}
	return defaultFloor
}

// ApplyFloor returns the elapsed time to score with and whether the reported
// value fell below the level floor.
func ApplyFloor(level, elapsed int) (int, bool) {
	floor := Floor(level)
	if elapsed < floor {
		return floor * penaltyFactor, true
	}
	return elapsed, false
}

// Score computes base - elapsed*2 - damage*5, floored at zero. It does not
// apply the anti-cheat floor; see Calculate.
func Score(level, elapsed, damage int) int {
	s := BasePoints(level) - elapsed*elapsedPenalty - damage*damagePenalty
	return max(0, s)
}

// Calculate applies the anti-cheat floor and scores the match.
func Calculate(s Stats) Result {
	elapsed, flagged := ApplyFloor(s.LevelReached, s.ElapsedSeconds)
	return Result{
		Score:   Score(s.LevelReached, elapsed, s.DamageTaken),
		Elapsed: elapsed,
		Flagged: flagged,
		Floor:   Floor(s.LevelReached),
	}
}
