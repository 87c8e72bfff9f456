// Package terminal provides TTY detection helpers. Commands use it to decide
// between styled tree output, progress bars and plain text.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Info holds the resolved terminal state for the current process.
// Create one at startup via Detect() and pass it down.
type Info struct {
	// IsTerminal is true when stdout is connected to a TTY.
	IsTerminal bool
	// StderrIsTerminal is true when stderr is connected to a TTY.
	StderrIsTerminal bool
	// ColorEnabled is true when ANSI colours should be emitted.
	ColorEnabled bool
	// ProgressEnabled is true when download progress bars may be drawn.
	ProgressEnabled bool
	// ForceJSON is true when --format json was explicitly passed.
	ForceJSON bool
}

// Detect inspects the environment and returns a populated Info.
//
//	noColor    – true when --no-color was passed (or NO_COLOR env is set)
//	forceJSON  – true when machine readable output was requested
func Detect(noColor, forceJSON bool) Info {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	stderrTTY := term.IsTerminal(int(os.Stderr.Fd()))

	// Honour the NO_COLOR convention (https://no-color.org/).
	envNoColor := os.Getenv("NO_COLOR") != ""

	return Info{
		IsTerminal:       isTTY,
		StderrIsTerminal: stderrTTY,
		ColorEnabled:     isTTY && !noColor && !envNoColor && !IsDumb(),
		ProgressEnabled:  stderrTTY && !forceJSON && !IsCI(),
		ForceJSON:        forceJSON,
	}
}

// IsDumb returns true when the terminal is known to have no capabilities
// (e.g. TERM=dumb or running inside Emacs).
func IsDumb() bool {
	t := strings.ToLower(os.Getenv("TERM"))
	return t == "dumb" || t == ""
}

// IsCI returns true when a well-known CI environment variable is set.
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "TRAVIS", "HARNESS_BUILD_ID"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
