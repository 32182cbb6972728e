package combat

import (
	"strconv"
	"strings"

	"github.com/mcoot/combattracker/internal/model"
)

// letterIdentifier converts a 1-based ordinal to A..Z, AA, AB, ...
func letterIdentifier(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// parseLetters is the inverse of letterIdentifier. It returns 0 for anything
// that is not upper-case letters.
func parseLetters(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

func formatIdentifier(kind model.IdentifierType, n int) string {
	if kind == model.IdentifierNumber {
		return strconv.Itoa(n)
	}
	return letterIdentifier(n)
}

func parseIdentifier(kind model.IdentifierType, s string) int {
	if kind == model.IdentifierNumber {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return parseLetters(s)
}

// highestIdentifier finds the largest ordinal already used by combatants
// with the given name. The second result reports whether any of them
// carries an identifier at all.
func highestIdentifier(combatants []model.Combatant, name string, kind model.IdentifierType) (int, bool) {
	highest, labelled := 0, false
	for i := range combatants {
		c := &combatants[i]
		if !strings.EqualFold(c.Name, name) || c.Identifier == "" {
			continue
		}
		labelled = true
		highest = max(highest, parseIdentifier(kind, c.Identifier), c.GroupIndex)
	}
	return highest, labelled
}
