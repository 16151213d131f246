package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		stats       Stats
		wantScore   int
		wantElapsed int
		wantFlagged bool
	}{
		{
			name:        "level 1 regular",
			stats:       Stats{LevelReached: 1, ElapsedSeconds: 100, DamageTaken: 10},
			wantScore:   750,
			wantElapsed: 100,
		},
		{
			name:        "level 3 below floor is penalized",
			stats:       Stats{LevelReached: 3, ElapsedSeconds: 10, DamageTaken: 0},
			wantScore:   5880,
			wantElapsed: 60,
			wantFlagged: true,
		},
		{
			name:        "level 2 exactly at floor",
			stats:       Stats{LevelReached: 2, ElapsedSeconds: 15, DamageTaken: 0},
			wantScore:   2970,
			wantElapsed: 15,
		},
		{
			name:        "never negative",
			stats:       Stats{LevelReached: 1, ElapsedSeconds: 400, DamageTaken: 100},
			wantScore:   0,
			wantElapsed: 400,
		},
		{
			name:        "unknown level scores zero",
			stats:       Stats{LevelReached: 7, ElapsedSeconds: 50},
			wantScore:   0,
			wantElapsed: 50,
		},
		{
			name:        "unknown level uses default floor",
			stats:       Stats{LevelReached: 0, ElapsedSeconds: 1},
			wantScore:   0,
			wantElapsed: 10,
			wantFlagged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.stats)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantElapsed, got.Elapsed)
			assert.Equal(t, tt.wantFlagged, got.Flagged)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	assert.Equal(t, 750, Score(1, 100, 10))
	assert.Equal(t, Score(2, 40, 3), Score(2, 40, 3))
}

func TestFloor(t *testing.T) {
	assert.Equal(t, 5, Floor(1))
	assert.Equal(t, 15, Floor(2))
	assert.Equal(t, 30, Floor(3))
	assert.Equal(t, 5, Floor(42))
}
