package markdown

import (
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
	fenceClose = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*$")
)

// span is a half-open byte range of the source
type span struct{ start, end int }

// codeSpans returns the fenced code blocks and inline code spans of src, in
// order. Notation inside them is left as written.
func codeSpans(src string) []span {
	var out []span
	var fence string // Opening fence while inside a fenced block
	fenceStart, textStart := 0, 0

	for offset := 0; offset < len(src); {
		end := strings.IndexByte(src[offset:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += offset + 1
		}
		line := strings.TrimRight(src[offset:end], "\r\n")

		switch {
		case fence == "":
			if m := fenceOpen.FindStringSubmatch(line); m != nil && !(m[1][0] == '`' && strings.Contains(line[len(m[0]):], "`")) {
				out = append(out, inlineCode(src, textStart, offset)...)
				fence, fenceStart = m[1], offset
			}
		default:
			if m := fenceClose.FindStringSubmatch(line); m != nil && m[1][0] == fence[0] && len(m[1]) >= len(fence) {
				out = append(out, span{fenceStart, end})
				fence, textStart = "", end
			}
		}
		offset = end
	}

	if fence != "" {
		// An unclosed fence runs to the end of the document
		return append(out, span{fenceStart, len(src)})
	}
	return append(out, inlineCode(src, textStart, len(src))...)
}

// inlineCode finds backtick code spans in src[from:to]. A span closes on the
// next backtick run of the same length; an unmatched run is literal text.
func inlineCode(src string, from, to int) []span {
	var out []span
	for i := from; i < to; {
		if src[i] != '`' || (i > from && src[i-1] == '\\') {
			i++
			continue
		}
		n := runLength(src, i, to)
		closing := -1
		for j := i + n; j < to; {
			if src[j] != '`' {
				j++
				continue
			}
			m := runLength(src, j, to)
			if m == n {
				closing = j
				break
			}
			j += m
		}
		if closing < 0 {
			i += n
			continue
		}
		out = append(out, span{i, closing + n})
		i = closing + n
	}
	return out
}

func runLength(src string, i, to int) int {
	n := 0
	for i+n < to && src[i+n] == '`' {
		n++
	}
	return n
}

func overlapsCode(code []span, start, end int) bool {
	for _, c := range code {
		if start < c.end && end > c.start {
			return true
		}
	}
	return false
}
