// Package style defines the visual theme for depextract output.
// All colours and text styles are defined here so that the extraction tree,
// progress messages and hints share one look.
//
// Call Init(colorEnabled) once at startup. After that, use the exported
// styles and helper functions freely.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ─── Colour palette ──────────────────────────────────────────────────────────

var (
	Blue   = lipgloss.Color("#0078D4")
	Cyan   = lipgloss.Color("#00B4D8")
	Indigo = lipgloss.Color("#6366F1")

	Green  = lipgloss.Color("#22C55E")
	Yellow = lipgloss.Color("#FACC15")
	Red    = lipgloss.Color("#EF4444")

	Dim    = lipgloss.Color("#6B7280")
	Subtle = lipgloss.Color("#374151")
)

// ─── Text styles ─────────────────────────────────────────────────────────────

var (
	// Title is used for the root of a rendered tree.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	Success = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Yellow)

	Error = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)

	// DimText is used for hints and secondary info.
	DimText = lipgloss.NewStyle().
		Foreground(Dim)

	// Artifact renders artifact ids in trees and tables.
	Artifact = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	// Version renders concrete versions next to an artifact id.
	Version = lipgloss.NewStyle().
		Foreground(Indigo)

	// Branch styles the tree connectors.
	Branch = lipgloss.NewStyle().
		Foreground(Subtle).
		PaddingRight(1)
)

// Enabled tracks whether styles should render ANSI output.
// When false, all styles degrade to plain text.
var Enabled = true

// Init configures the style package. Call once at startup.
func Init(colorEnabled bool) {
	Enabled = colorEnabled
	if colorEnabled {
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// SuccessIcon returns a themed check mark.
func SuccessIcon() string {
	if Enabled {
		return Success.Render("✓")
	}
	return "OK"
}

// ErrorIcon returns a themed X mark.
func ErrorIcon() string {
	if Enabled {
		return Error.Render("✗")
	}
	return "ERROR"
}

// WarningIcon returns a themed warning indicator.
func WarningIcon() string {
	if Enabled {
		return Warning.Render("!")
	}
	return "WARN"
}

// Hint renders a "next step" hint message.
func Hint(msg string) string {
	return DimText.Render("→ " + msg)
}

// Coordinate renders "artifactId version" for tree and table output.
func Coordinate(artifactID, version string) string {
	if version == "" {
		return Artifact.Render(artifactID)
	}
	return Artifact.Render(artifactID) + " " + Version.Render(version)
}
