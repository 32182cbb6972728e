package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	classAttr = regexp.MustCompile(`^ct-(dice|tag)( ct-[a-z]+)?$`)
	rollAttr  = regexp.MustCompile(`^\d+d\d+([+-]\d+)?$`)
)

// Renderer turns notes into sanitized HTML
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer creates an HTML renderer with GitHub-flavoured markdown
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classAttr).OnElements("span")
	policy.AllowAttrs("data-roll").Matching(rollAttr).OnElements("span")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		policy: policy,
	}
}

// HTML renders src. Raw HTML in the source is sanitized along with the
// tracker's own spans.
func (r *Renderer) HTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(Annotate(src)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Plain rewrites tags as bold inline code for renderers without HTML
func Plain(src string) string {
	var b strings.Builder
	for _, seg := range Scan(src) {
		if seg.Tag == "" {
			b.WriteString(seg.Text)
			continue
		}
		fmt.Fprintf(&b, "**`%s: %s`**", seg.Tag, seg.Text)
	}
	return b.String()
}

// Terminal renders notes for a terminal. Style is a glamour style name
// ("auto" picks one from the terminal background).
func Terminal(src, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := renderer.Render(Plain(src))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}
