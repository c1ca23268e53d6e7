// Package render turns assistant replies and planner boards into styled
// terminal text.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

var (
	rendererMu sync.Mutex
	renderers  = map[int]*glamour.TermRenderer{}
)

// markdownStyle is a compact dark style in the board palette.
func markdownStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorText)},
			Margin:         uintPtr(0),
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorMuted), Italic: boolPtr(true)},
			Indent:         uintPtr(2),
			IndentToken:    stringPtr("│ "),
		},
		List: ansi.StyleList{
			LevelIndent: 2,
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorText)},
			},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorPrimary), Bold: boolPtr(true)},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorPrimary), Bold: boolPtr(true), Prefix: "# "},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorPrimary), Bold: boolPtr(true), Prefix: "## "},
		},
		H3: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorSecondary), Bold: boolPtr(true), Prefix: "### "},
		},
		Strikethrough: ansi.StylePrimitive{CrossedOut: boolPtr(true)},
		Emph:          ansi.StylePrimitive{Italic: boolPtr(true)},
		Strong:        ansi.StylePrimitive{Bold: boolPtr(true), Color: stringPtr(ColorTextBright)},
		HorizontalRule: ansi.StylePrimitive{
			Color:  stringPtr(ColorBorder),
			Format: "────────────────────────────────",
		},
		Item:        ansi.StylePrimitive{BlockPrefix: "• "},
		Enumeration: ansi.StylePrimitive{BlockPrefix: ". "},
		Task: ansi.StyleTask{
			Ticked:   "[✓] ",
			Unticked: "[ ] ",
		},
		Link:     ansi.StylePrimitive{Color: stringPtr(ColorAccent), Underline: boolPtr(true)},
		LinkText: ansi.StylePrimitive{Color: stringPtr(ColorAccent), Bold: boolPtr(true)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:           stringPtr(ColorWarning),
				BackgroundColor: stringPtr(ColorBackground),
				Prefix:          " ",
				Suffix:          " ",
			},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: stringPtr(ColorText)},
				Margin:         uintPtr(0),
			},
		},
		Table: ansi.StyleTable{
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
	}
}

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
func uintPtr(u uint) *uint       { return &u }

func markdownRenderer(width int) (*glamour.TermRenderer, error) {
	rendererMu.Lock()
	defer rendererMu.Unlock()

	if r, ok := renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle()),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}

// Markdown renders content for a terminal of the given width.
// If rendering fails, returns the original content.
func Markdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := markdownRenderer(width)
	if err != nil {
		return content
	}
	// TermRenderer is not safe for concurrent use.
	rendererMu.Lock()
	out, err := r.Render(content)
	rendererMu.Unlock()
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
