// Package markdown renders combatant notes with tracker notation.
//
// Notes are markdown with two additions: dice notation such as 2d6+3, and
// bracket tags such as {dmg: 1d6+2 slashing}. Both are turned into inline
// spans in a single regex pass before the markdown itself is rendered. Code
// spans and fenced code blocks are left as written.
package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/mcoot/combattracker/internal/dice"
)

// Tags is the fixed vocabulary of bracket tags
var Tags = []string{"hit", "dmg", "dc", "atk", "save", "recharge", "condition"}

const tagExpr = `\{(hit|dmg|dc|atk|save|recharge|condition):\s*([^{}\n]*?)\s*\}`

// notation matches a tag or, failing that, dice notation. Groups 1-2 are the
// tag, groups 3-6 the dice.
var notation = regexp.MustCompile(tagExpr + `|` + dice.Pattern.String())

// bonusOnly matches an attack bonus such as "+5" or "-1"
var bonusOnly = regexp.MustCompile(`^([+-])\s*(\d{1,3})\b`)

// Segment is one piece of annotated source
type Segment struct {
	Text string
	Tag  string // Set for bracket tags
	Roll string // Canonical dice expression, when the segment is rollable
}

// Scan splits source into plain text, tags and dice in one pass. Matches
// inside code stay plain text.
func Scan(src string) []Segment {
	var out []Segment
	code := codeSpans(src)
	last := 0
	for _, m := range notation.FindAllStringSubmatchIndex(src, -1) {
		start, end := m[0], m[1]
		if overlapsCode(code, start, end) {
			continue
		}
		var seg Segment
		switch {
		case m[2] >= 0:
			seg = tagSegment(src[m[2]:m[3]], src[m[4]:m[5]])
		default:
			groups := make([]string, 4)
			for g := range groups {
				if lo := m[6+2*g]; lo >= 0 {
					groups[g] = src[lo:m[7+2*g]]
				}
			}
			expr, err := dice.FromGroups(groups)
			if err != nil {
				// Out-of-range dice stay plain text
				continue
			}
			seg = Segment{Text: src[start:end], Roll: expr.String()}
		}
		if start > last {
			out = append(out, Segment{Text: src[last:start]})
		}
		out = append(out, seg)
		last = end
	}
	if last < len(src) {
		out = append(out, Segment{Text: src[last:]})
	}
	return out
}

func tagSegment(tag, body string) Segment {
	seg := Segment{Text: body, Tag: tag}
	if tag != "hit" && tag != "dmg" && tag != "atk" {
		return seg
	}
	if loc := dice.Pattern.FindStringSubmatch(body); loc != nil {
		if expr, err := dice.FromGroups(loc[1:]); err == nil {
			seg.Roll = expr.String()
		}
		return seg
	}
	if tag != "dmg" {
		if m := bonusOnly.FindStringSubmatch(body); m != nil {
			if expr, err := dice.Parse("d20" + m[1] + m[2]); err == nil {
				seg.Roll = expr.String()
			}
		}
	}
	return seg
}

// Annotate replaces tags and dice with HTML spans. Plain text is left as
// markdown for the renderer.
func Annotate(src string) string {
	var b strings.Builder
	for _, seg := range Scan(src) {
		switch {
		case seg.Tag != "":
			b.WriteString(`<span class="ct-tag ct-`)
			b.WriteString(seg.Tag)
			b.WriteString(`"`)
			writeRoll(&b, seg.Roll)
			b.WriteString(`>`)
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString(`</span>`)
		case seg.Roll != "":
			b.WriteString(`<span class="ct-dice"`)
			writeRoll(&b, seg.Roll)
			b.WriteString(`>`)
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString(`</span>`)
		default:
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

func writeRoll(b *strings.Builder, roll string) {
	if roll == "" {
		return
	}
	b.WriteString(` data-roll="`)
	b.WriteString(roll)
	b.WriteString(`"`)
}
