package util

import (
	"fmt"
	"strings"
)

// GetLineAndColumn converts a byte offset into 1-based line and column.
// Offsets past the end report the position just after the last character.
func GetLineAndColumn(src string, pos int) (line int, column int) {
	if pos > len(src) {
		pos = len(src)
	}
	if pos < 0 {
		pos = 0
	}
	before := src[:pos]
	line = strings.Count(before, "\n") + 1
	start := strings.LastIndexByte(before, '\n') + 1
	column = len([]rune(before[start:])) + 1
	return
}

// GetContextLines renders up to two lines before errorLine, then errorLine
// itself with a caret under errorCol followed by note.
func GetContextLines(src string, errorLine, errorCol int, note string) string {
	lines := strings.Split(src, "\n")
	var sb strings.Builder

	for i := max(errorLine-2, 1); i <= errorLine && i <= len(lines); i++ {
		text := lines[i-1]
		if i != errorLine {
			fmt.Fprintf(&sb, "     %3d | %s\n", i, text)
			continue
		}
		margin := fmt.Sprintf("  >  %3d | ", i)
		fmt.Fprintf(&sb, "%s%s\n", margin, text)
		col := min(max(errorCol-1, 0), len(text))
		sb.WriteString(blankOut(margin + text[:col]))
		sb.WriteString("^ ")
		sb.WriteString(note)
	}
	return sb.String()
}

// blankOut keeps tabs so the caret lines up under tab-indented source.
func blankOut(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return '\t'
		}
		return ' '
	}, s)
}
