//go:build windows

package colors

import (
	"os"

	"golang.org/x/sys/windows"
)

// EnableColor asks the Windows console to process virtual terminal sequences on stdout. If the console refuses,
// coloring stays disabled.
func EnableColor() {
	handle := windows.Handle(os.Stdout.Fd())

	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		enabled = false
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
		if err := windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
			enabled = false
			return
		}
	}
	enabled = true
}

func init() {
	EnableColor()
}
