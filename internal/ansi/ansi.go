// Package ansi emits and strips SGR (Select Graphic Rendition) escape
// sequences for terminal output.
package ansi

import (
	"regexp"
	"strconv"
)

// Color is one of the eight standard terminal colors.
type Color int

const (
	Black Color = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

const (
	fgBase = 30
	esc    = "\x1b["
)

// Reset restores default attributes.
const Reset = esc + "0m"

// sgrPattern matches any SGR sequence.
var sgrPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// FG wraps s in a foreground color.
func FG(c Color, s string) string {
	return sgr(fgBase+int(c)) + s + Reset
}

// Strip removes every SGR sequence from s.
func Strip(s string) string {
	return sgrPattern.ReplaceAllString(s, "")
}

func sgr(code int) string {
	return esc + strconv.Itoa(code) + "m"
}
