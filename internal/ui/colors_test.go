package ui

import "testing"

func TestEnabled_NoColor(t *testing.T) {
	if Enabled("1", 0) {
		t.Errorf("Expected NO_COLOR to disable styling")
	}
}

func TestDisable(t *testing.T) {
	saved := []string{ColorReset, ColorBold, ColorDim, ColorCyan, ColorGreen, ColorYellow, ColorWhite, ColorRed}
	t.Cleanup(func() {
		ColorReset, ColorBold, ColorDim = saved[0], saved[1], saved[2]
		ColorCyan, ColorGreen, ColorYellow, ColorWhite, ColorRed = saved[3], saved[4], saved[5], saved[6], saved[7]
	})

	Disable()
	for _, f := range []func(string) string{Bold, Success, Info, Warn, Error} {
		if got := f("plain"); got != "plain" {
			t.Errorf("Expected unstyled text, got %q", got)
		}
	}
}
