// Package ui holds the terminal styling shared by the CLI commands.
package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI sequences used by the help renderer and status lines. They are
// blanked by Disable.
var (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

func init() {
	if !Enabled(os.Getenv("NO_COLOR"), os.Stdout.Fd()) {
		Disable()
	}
}

// Enabled reports whether output to fd should be styled. Any non-empty
// NO_COLOR value turns styling off.
func Enabled(noColor string, fd uintptr) bool {
	if noColor != "" {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Disable turns every style into a no-op.
func Disable() {
	ColorReset, ColorBold, ColorDim = "", "", ""
	ColorCyan, ColorGreen, ColorYellow, ColorWhite, ColorRed = "", "", "", "", ""
}

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

// Warn is used for partial results and skipped sinks.
func Warn(s string) string {
	return ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}
