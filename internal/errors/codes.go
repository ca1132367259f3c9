// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured compiler diagnostics, adapted from
// kanso's internal/errors error-code table. Where kanso codes semantic
// analysis mistakes in source, this compiler's core assumes a
// well-formed AST and instead codes *internal* inconsistencies —
// violations that should never happen if every earlier pass behaved —
// plus a handful of genuinely non-fatal situations (SSA Undefined
// placeholder, conflict-graph timeout).
package errors

const (
	// Internal compiler errors (E1xxx): a pass left the value graph in a
	// state it should never reach. These are fatal.

	ErrCFGInconsistent        = "E1001" // predecessor/successor mismatch between adjacent blocks
	ErrMissingTerminator      = "E1002" // block without exactly one terminating instruction
	ErrUseDefMismatch         = "E1003" // use-set disagrees with the operand it records
	ErrPhiPredecessorMismatch = "E1004" // phi operand keys don't match the block's predecessor set
	ErrDoubleAbandon          = "E1005" // abandon() called on an already-invalid Value
	ErrBadPhiMovePlacement    = "E1006" // PhiMove scheduled after its Cmp/Branch pair
	ErrUnresolvedSymbol       = "E1007" // builder saw a usage name with no symbol-table entry

	// Non-fatal diagnostics (W2xxx): compilation continues with a
	// documented fallback.

	WarnUndefinedRead         = "W2001" // read of a variable with no reaching definition
	WarnConflictGraphTimeout  = "W2002" // allocation skipped for a function, all values spilled
	WarnDivModByZeroNotFolded = "W2003" // constant fold left for runtime trap
)
