package output

import (
	"os"
)

// colorsEnabled caches the result of color support detection.
var colorsEnabled *bool

// IsColorSupported determines if color output should be enabled.
// It checks for NO_COLOR environment variable and terminal capability.
func IsColorSupported() bool {
	if colorsEnabled != nil {
		return *colorsEnabled
	}

	enabled := detectColorSupport()
	colorsEnabled = &enabled
	return enabled
}

// detectColorSupport checks environment variables and terminal capabilities.
func detectColorSupport() bool {
	// NO_COLOR takes precedence - if set to any value, disable colors
	// See https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	// FORCE_COLOR forces color output regardless of terminal detection
	if _, exists := os.LookupEnv("FORCE_COLOR"); exists {
		return true
	}

	// Check if stdout is a terminal
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	// Check if it's a character device (terminal)
	if stat.Mode()&os.ModeCharDevice == 0 {
		return false
	}

	// Check TERM environment variable
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	return true
}

// ResetColorDetection clears the cached color detection result.
// This is useful for testing or when environment variables change.
func ResetColorDetection() {
	colorsEnabled = nil
}

// Standalone helpers for coloring individual values, used where a full
// Formatter is not in play (e.g. a single field of a status line).

// SuccessText formats text as a success value (green with checkmark).
func SuccessText(text string) string {
	return string(ColorGreen) + "✓ " + text + string(ColorReset)
}

// ErrorText formats text as an error value (red with X).
func ErrorText(text string) string {
	return string(ColorRed) + "✗ " + text + string(ColorReset)
}

// WarningText formats text as a warning value (yellow with warning symbol).
func WarningText(text string) string {
	return string(ColorYellow) + "⚠ " + text + string(ColorReset)
}

// SuccessTextIfEnabled formats as success only if colors are supported.
func SuccessTextIfEnabled(text string) string {
	if !IsColorSupported() {
		return "✓ " + text
	}
	return SuccessText(text)
}

// ErrorTextIfEnabled formats as error only if colors are supported.
func ErrorTextIfEnabled(text string) string {
	if !IsColorSupported() {
		return "✗ " + text
	}
	return ErrorText(text)
}

// WarningTextIfEnabled formats as warning only if colors are supported.
func WarningTextIfEnabled(text string) string {
	if !IsColorSupported() {
		return "⚠ " + text
	}
	return WarningText(text)
}
