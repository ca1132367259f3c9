// SPDX-License-Identifier: Apache-2.0

// Package ast defines the input contract the IR builder consumes: a
// CompUnit of declarations and function definitions. Lexing and parsing
// that produce this tree are an external collaborator of the core —
// this package only fixes the shape of their output.
package ast

// Position is a 1-based source location used for diagnostics.
type Position struct {
	Line   int
	Column int
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

// Decl is a top-level or block-level declaration: a ConstDecl or a VarDecl.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// BlockItem is either a Decl or a Stmt, the two things that can appear
// inside a Block.
type BlockItem interface {
	Node
	blockItemNode()
}
