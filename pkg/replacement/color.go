package replacement

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// KeepBackground asks the service to leave the background as it is.
const KeepBackground = "original"

// DefaultColor is the background used when none is requested.
const DefaultColor = "#ffffff"

// Presets are the offered background choices in display order.
var Presets = []string{KeepBackground, "#0099ff", "#3b82f6", "#ffffff", "#ef4444", "#9ca3af"}

// NormalizeColor maps equivalent spellings of a color to one form: hex
// colors become lowercase "#rrggbb", anything else is lowercased.
func NormalizeColor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	hex := s
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if c, err := colorful.Hex(hex); err == nil {
		return c.Hex()
	}
	return s
}

// SameColor reports whether a and b name the same background.
func SameColor(a, b string) bool {
	return NormalizeColor(a) == NormalizeColor(b)
}

// ValidateColor accepts KeepBackground or any hex color.
func ValidateColor(s string) bool {
	n := NormalizeColor(s)
	return n == KeepBackground || strings.HasPrefix(n, "#") && len(n) == 7
}

// describeColor returns a human name for well-known presets, for the prompt.
func describeColor(hex string) string {
	switch hex {
	case "#ffffff":
		return "pure white"
	case "#0099ff":
		return "bright sky blue"
	case "#3b82f6":
		return "medium blue"
	case "#ef4444":
		return "red"
	case "#9ca3af":
		return "light gray"
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	l, _, _ := c.Lab()
	switch {
	case l > 0.9:
		return "very light"
	case l < 0.2:
		return "very dark"
	default:
		return "solid"
	}
}
