// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"sysyarm/internal/ast"
	"sysyarm/internal/errors"
)

// ConstantFolding replaces every instruction whose result is determined
// regardless of a register value — all-constant operands, or one of a
// handful of algebraic identities — with the value it must produce, and
// propagates that into every user. It also canonicalizes a Cmp with its
// constant operand on the left (swapping the relation to match) and
// collapses phis that folding has made trivial.
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "constant-folding" }

func (ConstantFolding) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		for _, block := range fn.Blocks {
			if !block.IsValid() {
				continue
			}
			for _, instr := range block.Instrs {
				if !instr.IsValid() {
					continue
				}
				if foldInstruction(ctx, instr) {
					changed = true
				}
			}
			for _, phi := range block.Phis {
				if !phi.IsValid() {
					continue
				}
				if collapseTrivialPhi(phi) {
					changed = true
				}
			}
		}
	}
	if changed {
		SweepModule(m)
	}
	return changed
}

func foldInstruction(ctx *Context, instr *Instruction) bool {
	switch instr.Kind {
	case KUnary:
		return foldUnary(ctx, instr)
	case KBinary:
		return foldBinary(ctx, instr)
	case KCmp:
		return foldCmp(ctx, instr)
	case KLoad:
		return foldConstantLoad(ctx, instr)
	}
	return false
}

func replaceWithFoldedRole(oldV *Instruction, newV Value) {
	if n, ok := newV.(*Instruction); ok {
		n.Role = oldV.Role
		n.CaughtVar = oldV.CaughtVar
		n.GenName = oldV.GenName
	}
	replaceAllUses(oldV, newV)
	abandon(oldV)
}

func foldUnary(ctx *Context, instr *Instruction) bool {
	if n, ok := instr.LHS.(*Number); ok {
		var v int64
		switch instr.Op {
		case "+":
			v = n.Value
		case "-":
			v = -n.Value
		case "!":
			if n.Value == 0 {
				v = 1
			} else {
				v = 0
			}
		default:
			return false
		}
		replaceWithFoldedRole(instr, ctx.Num(v))
		return true
	}
	// +x -> x
	if instr.Op == "+" {
		replaceWithFoldedRole(instr, instr.LHS)
		return true
	}
	// -(-x) -> x, !(!x) -> x
	if inner, ok := instr.LHS.(*Instruction); ok && inner.Kind == KUnary && inner.Op == instr.Op &&
		(instr.Op == "-" || instr.Op == "!") {
		replaceWithFoldedRole(instr, inner.LHS)
		return true
	}
	return false
}

func foldBinary(ctx *Context, instr *Instruction) bool {
	lhs, lok := instr.LHS.(*Number)
	rhs, rok := instr.RHS.(*Number)
	if lok && rok {
		v, ok := evalBinary(instr.Op, lhs.Value, rhs.Value)
		if !ok {
			if (instr.Op == "/" || instr.Op == "%") && rhs.Value == 0 && ctx.Reporter != nil {
				ctx.Reporter.Warn(errors.WarnDivModByZeroNotFolded,
					"constant "+instr.Op+" by zero left for a runtime trap", ast.Position{})
			}
			return false
		}
		replaceWithFoldedRole(instr, ctx.Num(v))
		return true
	}

	switch instr.Op {
	case "+":
		if rok && rhs.Value == 0 {
			replaceWithFoldedRole(instr, instr.LHS)
			return true
		}
		if lok && lhs.Value == 0 {
			replaceWithFoldedRole(instr, instr.RHS)
			return true
		}
		if neg, ok := negatedOperand(instr.RHS); ok {
			return rewriteAsBinary(ctx, instr, "-", instr.LHS, neg)
		}
		if neg, ok := negatedOperand(instr.LHS); ok {
			return rewriteAsBinary(ctx, instr, "-", instr.RHS, neg)
		}
		if instr.LHS == instr.RHS {
			return rewriteAsBinary(ctx, instr, "*", instr.LHS, ctx.Num(2))
		}
	case "-":
		if rok && rhs.Value == 0 {
			replaceWithFoldedRole(instr, instr.LHS)
			return true
		}
		if instr.LHS == instr.RHS {
			replaceWithFoldedRole(instr, ctx.Num(0))
			return true
		}
		if neg, ok := negatedOperand(instr.RHS); ok {
			return rewriteAsBinary(ctx, instr, "+", instr.LHS, neg)
		}
	case "*":
		if (rok && rhs.Value == 0) || (lok && lhs.Value == 0) {
			replaceWithFoldedRole(instr, ctx.Num(0))
			return true
		}
		if rok && rhs.Value == 1 {
			replaceWithFoldedRole(instr, instr.LHS)
			return true
		}
		if lok && lhs.Value == 1 {
			replaceWithFoldedRole(instr, instr.RHS)
			return true
		}
	case "/":
		if rok && rhs.Value == 1 {
			replaceWithFoldedRole(instr, instr.LHS)
			return true
		}
		if instr.LHS == instr.RHS {
			replaceWithFoldedRole(instr, ctx.Num(1))
			return true
		}
	case "%":
		if rok && rhs.Value == 1 {
			replaceWithFoldedRole(instr, ctx.Num(0))
			return true
		}
		if instr.LHS == instr.RHS {
			replaceWithFoldedRole(instr, ctx.Num(0))
			return true
		}
	}
	return false
}

// rewriteAsBinary turns instr in place into newLHS op newRHS, fixing up
// the use-sets of every operand instr no longer reads. Used instead of a
// fresh Instruction so instr keeps its identity (and any lvalue role)
// while its shape changes.
func rewriteAsBinary(ctx *Context, instr *Instruction, op string, newLHS, newRHS Value) bool {
	if instr.LHS == newLHS && instr.RHS == newRHS && instr.Op == op {
		return false
	}
	removeUse(instr.LHS, instr)
	removeUse(instr.RHS, instr)
	instr.Op = op
	instr.LHS = newLHS
	instr.RHS = newRHS
	addUse(newLHS, instr)
	addUse(newRHS, instr)
	foldBinary(ctx, instr)
	return true
}

// negatedOperand reports whether v is the unary negation of some value,
// returning that value.
func negatedOperand(v Value) (Value, bool) {
	instr, ok := v.(*Instruction)
	if !ok || instr.Kind != KUnary || instr.Op != "-" {
		return nil, false
	}
	return instr.LHS, true
}

func evalBinary(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	}
	return 0, false
}

func foldCmp(ctx *Context, instr *Instruction) bool {
	lhs, lok := instr.LHS.(*Number)
	rhs, rok := instr.RHS.(*Number)
	if lok && rok {
		v, ok := evalRelation(instr.Op, lhs.Value, rhs.Value)
		if !ok {
			return false
		}
		replaceWithFoldedRole(instr, ctx.Num(v))
		return true
	}
	// Canonicalize so the constant operand, if any, is on the right.
	if lok && !rok {
		removeUse(instr.LHS, instr)
		removeUse(instr.RHS, instr)
		instr.LHS, instr.RHS = instr.RHS, instr.LHS
		instr.Op = flipRelation(instr.Op)
		addUse(instr.LHS, instr)
		addUse(instr.RHS, instr)
		return true
	}
	return false
}

func evalRelation(op string, l, r int64) (int64, bool) {
	var result bool
	switch op {
	case "<":
		result = l < r
	case ">":
		result = l > r
	case "<=":
		result = l <= r
	case ">=":
		result = l >= r
	case "==":
		result = l == r
	case "!=":
		result = l != r
	default:
		return 0, false
	}
	if result {
		return 1, true
	}
	return 0, true
}

func flipRelation(op string) string {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	default:
		return op // == and != are symmetric
	}
}

// foldConstantLoad replaces a Load from a Constant at a statically known
// offset with the Number stored there.
func foldConstantLoad(ctx *Context, instr *Instruction) bool {
	c, ok := instr.Address.(*Constant)
	if !ok {
		return false
	}
	idx := 0
	if instr.Offset != nil {
		n, ok := instr.Offset.(*Number)
		if !ok {
			return false
		}
		idx = int(n.Value)
	}
	replaceWithFoldedRole(instr, loadFromInit(ctx, c.Init, idx))
	return true
}
