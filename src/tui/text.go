package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of s in terminal cells.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate shortens s to at most width cells, ending it with "..." when
// ellipsis is set and there is room for it.
func Truncate(s string, width int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if width <= 0 {
		return ""
	}
	if VisualWidth(s) <= width {
		return s
	}
	if ellipsis && width > 3 {
		return runewidth.Truncate(s, width-3, "") + "..."
	}
	return runewidth.Truncate(s, width, "")
}

// Cell truncates s and pads it with spaces to exactly width cells.
func Cell(s string, width int) string {
	s = Truncate(s, width, true)
	return runewidth.FillRight(s, width)
}

// Wrap breaks text into lines of at most width cells. Words longer than
// width, such as URLs and log paths, are split across lines.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		if lineWidth > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range strings.Fields(text) {
		w := VisualWidth(word)
		switch {
		case w > width:
			flush()
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if lineWidth+rw > width {
					flush()
				}
				line.WriteRune(r)
				lineWidth += rw
			}
		case lineWidth == 0:
			line.WriteString(word)
			lineWidth = w
		case lineWidth+1+w <= width:
			line.WriteByte(' ')
			line.WriteString(word)
			lineWidth += 1 + w
		default:
			flush()
			line.WriteString(word)
			lineWidth = w
		}
	}
	flush()

	return strings.Join(lines, "\n")
}
