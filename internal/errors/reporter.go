// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"fmt"

	"github.com/fatih/color"

	"sysyarm/internal/ast"
)

// Level is the severity of a CompilerError.
type Level string

const (
	Fatal   Level = "fatal"
	Warning Level = "warning"
)

// CompilerError is a single structured diagnostic: a stable code, a
// severity, and the source position it concerns. Adapted from kanso's
// CompilerError, trimmed of the suggestion/note machinery kanso needs for
// source-level semantic diagnostics — this core only ever reports internal
// invariant violations or the handful of documented non-fatal fallbacks.
type CompilerError struct {
	Level    Level
	Code     string
	Message  string
	Position ast.Position
}

func (e CompilerError) Error() string {
	if e.Position.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %d:%d: %s", e.Code, e.Position.Line, e.Position.Column, e.Message)
}

// Reporter accumulates diagnostics produced while running the pipeline.
// Passes never print; they append to a Reporter and let the caller (the
// CLI) decide how to render it, the same separation kanso's ErrorReporter
// keeps from its Analyzer.
type Reporter struct {
	Warnings []CompilerError
}

func NewReporter() *Reporter { return &Reporter{} }

// Warn records a non-fatal diagnostic.
func (r *Reporter) Warn(code, message string, pos ast.Position) {
	r.Warnings = append(r.Warnings, CompilerError{Level: Warning, Code: code, Message: message, Position: pos})
}

// ICE reports an internal-compiler-error invariant violation and
// panics. There is no recovery path for a broken value graph: the pass
// that produced it has a bug, and continuing would silently miscompile.
func ICE(code, message string) {
	panic(CompilerError{Level: Fatal, Code: code, Message: message})
}

// PrintWarnings renders accumulated warnings to standard output (the
// default output of the color package) using the same
// colored-diagnostic idiom as kanso's cmd/kanso-cli.
func (r *Reporter) PrintWarnings() {
	for _, w := range r.Warnings {
		color.Yellow("warning[%s]: %s", w.Code, w.Message)
	}
}
