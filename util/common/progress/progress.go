// Package progress reports the steps of an extraction pass to the user.
package progress

import (
	"fmt"
	"io"
	"os"
)

// Reporter defines the interface for reporting progress.
// The engine calls Step once per resolve/extract step of every dependency.
type Reporter interface {
	// Start begins progress reporting with an initial message
	Start(message string)

	// Step reports a new step in the operation
	Step(message string)

	// Error reports an error condition
	Error(message string)

	// Success reports successful completion
	Success(message string)

	// End finalizes progress reporting
	End()
}

// ConsoleReporter implements Reporter by printing plain lines.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to stderr, so that
// stdout stays clean for the rendered tree or JSON.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stderr}
}

// NewWriterReporter creates a ConsoleReporter writing to w.
func NewWriterReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Start(message string) {
	fmt.Fprintf(r.out, "⚡ %s...\n", message)
}

func (r *ConsoleReporter) Step(message string) {
	fmt.Fprintf(r.out, "  ▶ %s\n", message)
}

func (r *ConsoleReporter) Error(message string) {
	fmt.Fprintf(r.out, "  ❌ %s\n", message)
}

func (r *ConsoleReporter) Success(message string) {
	fmt.Fprintf(r.out, "  ✅ %s\n", message)
}

func (r *ConsoleReporter) End() {}

// NopReporter implements Reporter with no-op operations
type NopReporter struct{}

// NewNopReporter creates a new NopReporter
func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (r *NopReporter) Start(message string)   {}
func (r *NopReporter) Step(message string)    {}
func (r *NopReporter) Error(message string)   {}
func (r *NopReporter) Success(message string) {}
func (r *NopReporter) End()                   {}
