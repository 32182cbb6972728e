// Package dice parses and rolls dice notation such as 2d6+3.
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/model"
)

// Limits on a single expression
const (
	MaxCount = 100
	MaxSides = 1000
)

// Pattern matches dice notation inside free text. Count and modifier are optional.
var Pattern = regexp.MustCompile(`\b(\d{0,3})[dD](\d{1,4})(?:\s*([+-])\s*(\d{1,4}))?\b`)

var exactPattern = regexp.MustCompile(`^\s*(\d{0,3})[dD](\d{1,4})(?:\s*([+-])\s*(\d{1,4}))?\s*$`)

// Expression is a parsed NdM+K expression
type Expression struct {
	Count    int
	Sides    int
	Modifier int
}

// Roll captures the individual dice and the final total
type Roll struct {
	Expression Expression
	Results    []int
	Total      int
}

// Parse reads dice notation. A missing count means one die.
func Parse(s string) (Expression, error) {
	m := exactPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("%w: %q", model.ErrInvalidDice, s)
	}
	return FromGroups(m[1:])
}

// FromGroups builds an expression from the four capture groups of Pattern
func FromGroups(groups []string) (Expression, error) {
	count := 1
	if groups[0] != "" {
		n, err := strconv.Atoi(groups[0])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: count %q", model.ErrInvalidDice, groups[0])
		}
		count = n
	}
	sides, err := strconv.Atoi(groups[1])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: sides %q", model.ErrInvalidDice, groups[1])
	}

	modifier := 0
	if groups[3] != "" {
		modifier, err = strconv.Atoi(groups[3])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: modifier %q", model.ErrInvalidDice, groups[3])
		}
		if groups[2] == "-" {
			modifier = -modifier
		}
	}

	expr := Expression{Count: count, Sides: sides, Modifier: modifier}
	if err := expr.Validate(); err != nil {
		return Expression{}, err
	}
	return expr, nil
}

// Validate checks the expression is rollable
func (e Expression) Validate() error {
	if e.Count < 1 || e.Count > MaxCount {
		return fmt.Errorf("%w: dice count must be between 1 and %d", model.ErrInvalidDice, MaxCount)
	}
	if e.Sides < 1 || e.Sides > MaxSides {
		return fmt.Errorf("%w: dice sides must be between 1 and %d", model.ErrInvalidDice, MaxSides)
	}
	return nil
}

// String formats the expression back into canonical notation
func (e Expression) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
	switch {
	case e.Modifier > 0:
		fmt.Fprintf(&b, "+%d", e.Modifier)
	case e.Modifier < 0:
		fmt.Fprintf(&b, "-%d", -e.Modifier)
	}
	return b.String()
}

// Average returns the rounded-down expected total, as printed in stat blocks
func (e Expression) Average() int {
	return e.Count*(e.Sides+1)/2 + e.Modifier
}

// Roll rolls the expression. Results are in roll order.
func (e Expression) Roll(rnd random.Random) Roll {
	results := make([]int, e.Count)
	total := e.Modifier
	for i := range results {
		results[i] = rnd.Intn(e.Sides) + 1
		total += results[i]
	}
	return Roll{Expression: e, Results: results, Total: total}
}

// RollString parses and rolls in one step
func RollString(s string, rnd random.Random) (Roll, error) {
	expr, err := Parse(s)
	if err != nil {
		return Roll{}, err
	}
	return expr.Roll(rnd), nil
}

// D20 rolls a single twenty-sided die plus a bonus
func D20(rnd random.Random, bonus int) int {
	return rnd.Intn(20) + 1 + bonus
}
