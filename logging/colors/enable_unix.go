//go:build !windows

package colors

// EnableColor is a no-op outside of Windows, where terminals are assumed to support ANSI escape codes.
func EnableColor() {
	enabled = true
}

func init() {
	EnableColor()
}
