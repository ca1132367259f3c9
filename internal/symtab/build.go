// SPDX-License-Identifier: Apache-2.0
package symtab

import (
	"fmt"

	"sysyarm/internal/ast"
)

// builtinNames are the runtime built-ins: calls to these are never
// mangled, since they have no user declaration to resolve against.
var builtinNames = map[string]bool{
	"getint": true, "getch": true, "getarray": true,
	"putint": true, "putch": true, "putarray": true, "putf": true,
	"starttime": true, "stoptime": true,
}

// Error is a resolution failure: an undeclared name, a shadowing conflict,
// or an initializer the front end could not fold to a constant.
type Error struct {
	Message  string
	Position ast.Position
}

func (e Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
}

type builder struct {
	table *Table
	errs  []Error
}

// Resolve walks cu, declaring every const/var/param/function into a fresh
// Table and rewriting every ast.LValExpr.Name and ast.CallExpr.Callee from
// its source spelling to its resolved usage name in place, so the IR
// builder can treat every name it sees as already unique.
// Array dimensions and const initializers are folded to concrete integers
// along the way; Resolve returns every error encountered rather than
// stopping at the first.
func Resolve(cu *ast.CompUnit) (*Table, []Error) {
	b := &builder{table: NewTable()}
	for _, d := range cu.Decls {
		b.declGlobal(d)
	}
	for _, fn := range cu.Funcs {
		kind := IntFunc
		if fn.Kind == ast.FuncVoid {
			kind = VoidFunc
		}
		if _, exists := b.table.Functions[fn.Name]; exists {
			b.fail(fn.Position, "function %q redeclared", fn.Name)
			continue
		}
		b.table.DeclareFunction(fn.Name, kind)
	}
	for _, fn := range cu.Funcs {
		b.resolveFunc(fn)
	}
	return b.table, b.errs
}

func (b *builder) fail(pos ast.Position, format string, args ...any) {
	b.errs = append(b.errs, Error{Message: fmt.Sprintf(format, args...), Position: pos})
}

func (b *builder) declGlobal(d ast.Decl) {
	switch decl := d.(type) {
	case *ast.ConstDecl:
		for _, def := range decl.Defs {
			b.declConstDef(b.table.Global, def)
		}
	case *ast.VarDecl:
		for _, def := range decl.Defs {
			b.declVarDef(b.table.Global, def)
		}
	}
}

func (b *builder) declConstDef(scope *Scope, def *ast.ConstDef) {
	dims := b.foldDims(scope, def.Dims)
	sym := &Symbol{Kind: ConstScalar, Dims: dims, ConstInit: make(map[int]int64)}
	if len(dims) > 0 {
		sym.Kind = ConstArray
	}
	b.foldInitInto(scope, def.Init, dims, sym.ConstInit, 0)
	b.table.Declare(scope, def.Name, sym)
	def.Name = sym.UsageName
}

func (b *builder) declVarDef(scope *Scope, def *ast.VarDef) {
	dims := b.foldDims(scope, def.Dims)
	sym := &Symbol{Kind: Scalar, Dims: dims}
	if len(dims) > 0 {
		sym.Kind = Array
	}
	// Array initializers are always constant-folded regardless of scope
	// (SysY restricts them to constant expressions, same as a const decl);
	// a scalar local's initializer is a general expression and is instead
	// lowered by the IR builder as ordinary code, so it is left unfolded
	// here and resolved (name rewriting only) by resolveBlock.
	isGlobal := scope.Key.Layer == 0
	if def.Init != nil && (len(dims) > 0 || isGlobal) {
		sym.ConstInit = make(map[int]int64)
		b.foldInitInto(scope, def.Init, dims, sym.ConstInit, 0)
	}
	b.table.Declare(scope, def.Name, sym)
	def.Name = sym.UsageName
}

func (b *builder) foldDims(scope *Scope, dims []ast.Expr) []int {
	out := make([]int, 0, len(dims))
	for _, d := range dims {
		v, err := b.evalConst(scope, d)
		if err != nil {
			b.fail(d.Pos(), "array dimension must be a constant expression: %v", err)
			v = 0
		}
		out = append(out, int(v))
	}
	return out
}

// foldInitInto flattens a (possibly nested) initializer into sparse
// flat-index -> value entries, following the row-major layout
// ir.Global.Init / ir.Constant.Init use. base is the flat offset the current
// InitVal starts at.
func (b *builder) foldInitInto(scope *Scope, init ast.InitVal, dims []int, out map[int]int64, base int) int {
	if init == nil {
		return base
	}
	switch v := init.(type) {
	case *ast.ScalarInit:
		val, err := b.evalConst(scope, v.Value)
		if err != nil {
			b.fail(v.Position, "initializer must be a constant expression: %v", err)
			val = 0
		}
		if val != 0 {
			out[base] = val
		}
		return base + 1
	case *ast.ListInit:
		if len(dims) == 0 {
			b.fail(v.Position, "braced initializer for a scalar")
			return base + 1
		}
		stride := 1
		for _, d := range dims[1:] {
			stride *= d
		}
		cursor := base
		for _, elem := range v.Elems {
			if _, nested := elem.(*ast.ListInit); nested && len(dims) > 1 {
				b.foldInitInto(scope, elem, dims[1:], out, cursor)
				cursor += stride
			} else {
				cursor = b.foldInitInto(scope, elem, nil, out, cursor)
			}
		}
		total := 1
		for _, d := range dims {
			total *= d
		}
		return base + total
	}
	return base
}

func (b *builder) resolveFunc(fn *ast.FuncDef) {
	scope := b.table.NewChildScope(b.table.Global)
	for _, p := range fn.Params {
		var dims []int
		if p.IsArray {
			dims = append(dims, 0) // decayed leading dimension
			dims = append(dims, b.foldDims(scope, p.Dims[1:])...)
		}
		kind := Scalar
		if p.IsArray {
			kind = Array
		}
		sym := b.table.Declare(scope, p.Name, &Symbol{Kind: kind, Dims: dims})
		p.Name = sym.UsageName
	}
	b.resolveBlock(scope, fn.Body)
}

func (b *builder) resolveBlock(parent *Scope, block *ast.Block) {
	scope := b.table.NewChildScope(parent)
	for _, item := range block.Items {
		switch it := item.(type) {
		case *ast.ConstDecl:
			for _, def := range it.Defs {
				b.declConstDef(scope, def)
			}
		case *ast.VarDecl:
			for _, def := range it.Defs {
				b.declVarDef(scope, def)
				if def.Init != nil {
					b.resolveInitExprs(scope, def.Init)
				}
			}
		case ast.Stmt:
			b.resolveStmt(scope, it)
		}
	}
}

// resolveInitExprs rewrites names inside a local variable's initializer
// expressions without requiring them to be constant.
func (b *builder) resolveInitExprs(scope *Scope, init ast.InitVal) {
	switch v := init.(type) {
	case *ast.ScalarInit:
		b.resolveExpr(scope, v.Value)
	case *ast.ListInit:
		for _, e := range v.Elems {
			b.resolveInitExprs(scope, e)
		}
	}
}

func (b *builder) resolveStmt(scope *Scope, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Block:
		b.resolveBlock(scope, st)
	case *ast.AssignStmt:
		b.resolveLVal(scope, st.Target)
		b.resolveExpr(scope, st.Value)
	case *ast.ExprStmt:
		b.resolveExpr(scope, st.Value)
	case *ast.IfStmt:
		b.resolveExpr(scope, st.Cond)
		b.resolveStmt(scope, st.Then)
		if st.Else != nil {
			b.resolveStmt(scope, st.Else)
		}
	case *ast.WhileStmt:
		b.resolveExpr(scope, st.Cond)
		b.resolveStmt(scope, st.Body)
	case *ast.ReturnStmt:
		if st.Value != nil {
			b.resolveExpr(scope, st.Value)
		}
	}
}

func (b *builder) resolveExpr(scope *Scope, e ast.Expr) {
	switch ex := e.(type) {
	case *ast.LValExpr:
		b.resolveLVal(scope, ex)
	case *ast.UnaryExpr:
		b.resolveExpr(scope, ex.Operand)
	case *ast.BinaryExpr:
		b.resolveExpr(scope, ex.Left)
		b.resolveExpr(scope, ex.Right)
	case *ast.CallExpr:
		if sym, ok := b.table.Functions[ex.Callee]; ok {
			ex.Callee = sym.UsageName
		} else if !builtinNames[ex.Callee] {
			b.fail(ex.Position, "call to undeclared function %q", ex.Callee)
		}
		for _, a := range ex.Args {
			b.resolveExpr(scope, a)
		}
	}
}

func (b *builder) resolveLVal(scope *Scope, l *ast.LValExpr) {
	sym, ok := b.table.Resolve(scope, l.Name)
	if !ok {
		b.fail(l.Position, "use of undeclared identifier %q", l.Name)
		return
	}
	for _, ix := range l.Indices {
		b.resolveExpr(scope, ix)
	}
	l.Name = sym.UsageName
}

// evalConst folds a constant-expression subtree to an int64, as required
// of every array dimension and every const initializer.
func (b *builder) evalConst(scope *Scope, e ast.Expr) (int64, error) {
	switch ex := e.(type) {
	case *ast.NumberLit:
		return ex.Value, nil
	case *ast.UnaryExpr:
		v, err := b.evalConst(scope, ex.Operand)
		if err != nil {
			return 0, err
		}
		switch ex.Op {
		case ast.UnaryPlus:
			return v, nil
		case ast.UnaryNeg:
			return -v, nil
		case ast.UnaryNot:
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("unsupported unary operator %q", ex.Op)
	case *ast.BinaryExpr:
		l, err := b.evalConst(scope, ex.Left)
		if err != nil {
			return 0, err
		}
		r, err := b.evalConst(scope, ex.Right)
		if err != nil {
			return 0, err
		}
		return evalBinaryConst(ex.Op, l, r)
	case *ast.LValExpr:
		sym, ok := b.table.Resolve(scope, ex.Name)
		if !ok {
			return 0, fmt.Errorf("use of undeclared identifier %q", ex.Name)
		}
		if sym.Kind != ConstScalar && sym.Kind != ConstArray {
			return 0, fmt.Errorf("%q is not a constant", ex.Name)
		}
		if len(ex.Indices) == 0 {
			return sym.ConstInit[0], nil
		}
		flat := 0
		for i, ixExpr := range ex.Indices {
			ix, err := b.evalConst(scope, ixExpr)
			if err != nil {
				return 0, err
			}
			stride := int64(1)
			for _, d := range sym.Dims[i+1:] {
				stride *= int64(d)
			}
			flat += int(ix * stride)
		}
		return sym.ConstInit[flat], nil
	default:
		return 0, fmt.Errorf("not a constant expression")
	}
}

func evalBinaryConst(op ast.BinaryOp, l, r int64) (int64, error) {
	switch op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("division by zero in constant expression")
		}
		return l / r, nil
	case ast.OpMod:
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero in constant expression")
		}
		return l % r, nil
	case ast.OpLt:
		return boolInt(l < r), nil
	case ast.OpGt:
		return boolInt(l > r), nil
	case ast.OpLe:
		return boolInt(l <= r), nil
	case ast.OpGe:
		return boolInt(l >= r), nil
	case ast.OpEq:
		return boolInt(l == r), nil
	case ast.OpNe:
		return boolInt(l != r), nil
	case ast.OpAnd:
		return boolInt(l != 0 && r != 0), nil
	case ast.OpOr:
		return boolInt(l != 0 || r != 0), nil
	}
	return 0, fmt.Errorf("unsupported binary operator %q", op)
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
