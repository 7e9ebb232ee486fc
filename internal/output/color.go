// Package output renders leechkit reports for the terminal and for machines.
//
// Tables use plain text columns with ANSI color when stdout is a terminal
// and NO_COLOR is unset. Reports can also be encoded as JSON or YAML.
package output

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// stdout is the process stdout as it was at startup. Suppress swaps
// os.Stdout while reviews load, so rendering never reads the variable.
var stdout = os.Stdout

var stdoutIsTerminal = sync.OnceValue(func() bool {
	return isatty.IsTerminal(stdout.Fd())
})

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return stdoutIsTerminal()
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// Bold returns text in bold when color is enabled.
func Bold(text string) string {
	return colorize(colorBold, text)
}
