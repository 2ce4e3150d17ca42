package monitor

import "github.com/charmbracelet/x/ansi"

// StripANSI removes terminal escape sequences so rules see the visible text
func StripANSI(s string) string {
	return ansi.Strip(s)
}
