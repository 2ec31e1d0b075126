// Package output provides consistent CLI output formatting.
package output

import (
	"fmt"
	"io"
)

// Writer formats status output for CLI commands.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) { w.Status("✓", msg) }

// Warning prints a warning message.
func (w *Writer) Warning(msg string) { w.Status("!", msg) }

// Errorln prints an error message.
func (w *Writer) Errorln(msg string) { w.Status("✗", msg) }

// Newline prints an empty line.
func (w *Writer) Newline() { fmt.Fprintln(w.out) }
