package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/combattracker/internal/dependencies/mocks"
	"github.com/mcoot/combattracker/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Expression
	}{
		{"2d6+3", Expression{Count: 2, Sides: 6, Modifier: 3}},
		{"d20", Expression{Count: 1, Sides: 20}},
		{"1d8 - 1", Expression{Count: 1, Sides: 8, Modifier: -1}},
		{" 10D10 ", Expression{Count: 10, Sides: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "d", "2x6", "0d6", "2d0", "101d6", "1d1001", "2d6+"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, model.ErrInvalidDice)
		})
	}
}

func TestExpressionString(t *testing.T) {
	assert.Equal(t, "2d6+3", Expression{Count: 2, Sides: 6, Modifier: 3}.String())
	assert.Equal(t, "1d20", Expression{Count: 1, Sides: 20}.String())
	assert.Equal(t, "1d8-1", Expression{Count: 1, Sides: 8, Modifier: -1}.String())
}

func TestExpressionAverage(t *testing.T) {
	// Goblin: 2d6 -> 7
	assert.Equal(t, 7, Expression{Count: 2, Sides: 6}.Average())
	// Ogre: 7d10+21 -> 59
	assert.Equal(t, 59, Expression{Count: 7, Sides: 10, Modifier: 21}.Average())
}

func TestRollUsesRandomSource(t *testing.T) {
	rnd := mocks.NewMockRandom()
	rnd.QueueIntn(2, 5) // 3 and 6

	roll := Expression{Count: 2, Sides: 6, Modifier: 3}.Roll(rnd)

	assert.Equal(t, []int{3, 6}, roll.Results)
	assert.Equal(t, 12, roll.Total)
}

func TestRollString(t *testing.T) {
	rnd := mocks.NewMockRandom()
	rnd.QueueIntn(19)

	roll, err := RollString("d20+4", rnd)
	require.NoError(t, err)
	assert.Equal(t, 24, roll.Total)

	_, err = RollString("nonsense", rnd)
	assert.ErrorIs(t, err, model.ErrInvalidDice)
}

func TestD20(t *testing.T) {
	rnd := mocks.NewMockRandom()
	rnd.QueueIntn(0, 19)

	assert.Equal(t, 3, D20(rnd, 2))
	assert.Equal(t, 22, D20(rnd, 2))
}

func TestPatternFindsNotationInText(t *testing.T) {
	matches := Pattern.FindAllString("Bite: 1d6+2 piercing, or d4 fire. Lasts 10 minutes.", -1)
	assert.Equal(t, []string{"1d6+2", "d4"}, matches)
}
