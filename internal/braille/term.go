package braille

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Reset ends an ANSI colour run.
const Reset = "\x1b[0m"

// Palette holds the ANSI colours used for series and chart layers.
var Palette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// Muted is the colour for grids and axes.
const Muted = "\x1b[90m"

// UseColor reports whether output to w should carry ANSI colours. NO_COLOR
// always wins; force enables colour for non-terminal writers.
func UseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// TerminalWidth returns the width of stdout, or fallback when it is not a
// terminal.
func TerminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Paint wraps s in color when enabled.
func Paint(s, color string, enabled bool) string {
	if !enabled || color == "" || s == "" {
		return s
	}
	return color + s + Reset
}
