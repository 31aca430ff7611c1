package colors

import "fmt"

// Color describes an ANSI escape code used to style console output.
type Color int

// ANSI codes, mirroring the palette zerolog uses for its console writer.
const (
	RED       Color = 31
	GREEN     Color = 32
	YELLOW    Color = 33
	BLUE      Color = 34
	MAGENTA   Color = 35
	CYAN      Color = 36
	BOLD      Color = 1
	DARK_GRAY Color = 90
)

// LEFT_ARROW is the glyph used in place of the "info" level on console output.
const LEFT_ARROW = "⇾"

// enabled describes whether Colorize emits escape codes. It is toggled by EnableColor and DisableColor.
var enabled = true

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// DisableColor turns every ColorFunc into a plain formatter.
func DisableColor() {
	enabled = false
}

// Colorize returns s wrapped in the ANSI code c, or s formatted as-is if coloring is disabled.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// Reset is a ColorFunc that returns the input as a plain string, resetting the color context of a log message.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

func Red(s any) string        { return Colorize(s, RED) }
func RedBold(s any) string    { return Colorize(Colorize(s, RED), BOLD) }
func Green(s any) string      { return Colorize(s, GREEN) }
func GreenBold(s any) string  { return Colorize(Colorize(s, GREEN), BOLD) }
func Yellow(s any) string     { return Colorize(s, YELLOW) }
func YellowBold(s any) string { return Colorize(Colorize(s, YELLOW), BOLD) }
func BlueBold(s any) string   { return Colorize(Colorize(s, BLUE), BOLD) }
func Magenta(s any) string    { return Colorize(s, MAGENTA) }
func Cyan(s any) string       { return Colorize(s, CYAN) }
func CyanBold(s any) string   { return Colorize(Colorize(s, CYAN), BOLD) }
func Bold(s any) string       { return Colorize(s, BOLD) }
func DarkGray(s any) string   { return Colorize(s, DARK_GRAY) }
