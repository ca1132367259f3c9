// SPDX-License-Identifier: Apache-2.0
package ast

import (
	"fmt"
	"strings"
)

// Print renders a CompUnit as an s-expression-ish debug dump. It exists for
// developer inspection only (the front end's pretty-printer is not part of
// the core, but kanso's own ast.Contract.String() sets the precedent that
// every AST carries a debug Print).
func Print(cu *CompUnit) string {
	var b strings.Builder
	for _, d := range cu.Decls {
		printDecl(&b, d, 0)
	}
	for _, f := range cu.Funcs {
		printFunc(&b, f, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func printDecl(b *strings.Builder, d Decl, depth int) {
	switch v := d.(type) {
	case *ConstDecl:
		for _, def := range v.Defs {
			indent(b, depth)
			fmt.Fprintf(b, "const %s%s\n", def.Name, dimsString(def.Dims))
		}
	case *VarDecl:
		for _, def := range v.Defs {
			indent(b, depth)
			fmt.Fprintf(b, "var %s%s\n", def.Name, dimsString(def.Dims))
		}
	}
}

func dimsString(dims []Expr) string {
	if len(dims) == 0 {
		return ""
	}
	return fmt.Sprintf("[%d dims]", len(dims))
}

func printFunc(b *strings.Builder, f *FuncDef, depth int) {
	indent(b, depth)
	kind := "int"
	if f.Kind == FuncVoid {
		kind = "void"
	}
	fmt.Fprintf(b, "func %s %s(%d params)\n", kind, f.Name, len(f.Params))
}
