// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"testing"

	"sysyarm/internal/errors"
)

func binOp(ctx *Context, block *BasicBlock, op string, l, r Value) *Instruction {
	instr := ctx.NewInstr(block, KBinary)
	instr.Op = op
	instr.LHS = l
	instr.RHS = r
	instr.Role = RoleRvalue
	addUse(l, instr)
	addUse(r, instr)
	block.Instrs = append(block.Instrs, instr)
	return instr
}

func TestFoldBinaryConstants(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	add := binOp(ctx, fn.Entry, "+", ctx.Num(2), ctx.Num(3))

	if !foldInstruction(ctx, add) {
		t.Fatal("expected folding to report a change")
	}
	if len(add.Users()) != 0 {
		t.Error("folded instruction should have no remaining users of itself")
	}
}

func TestFoldBinaryIdentities(t *testing.T) {
	cases := []struct {
		op          string
		lhsConstant bool
		value       int64
	}{
		{"+", false, 0},
		{"*", false, 1},
		{"-", false, 0},
		{"/", false, 1},
	}
	for _, c := range cases {
		ctx := NewContext()
		fn := newTestFunction(ctx, "f")
		other := ctx.NewInstr(fn.Entry, KUnary)
		other.Op = "-"
		other.LHS = ctx.Num(9)
		fn.Entry.Instrs = append(fn.Entry.Instrs, other)

		var instr *Instruction
		if c.lhsConstant {
			instr = binOp(ctx, fn.Entry, c.op, ctx.Num(c.value), other)
		} else {
			instr = binOp(ctx, fn.Entry, c.op, other, ctx.Num(c.value))
		}

		use := ctx.NewInstr(fn.Entry, KUnary)
		use.Op = "+"
		use.LHS = instr
		addUse(instr, use)
		fn.Entry.Instrs = append(fn.Entry.Instrs, use)

		if !foldBinary(ctx, instr) {
			t.Errorf("op %s: expected identity fold", c.op)
			continue
		}
		if use.LHS != Value(other) {
			t.Errorf("op %s: expected use to be redirected to %v, got %v", c.op, other, use.LHS)
		}
	}
}

func TestFoldUnaryDoubleNegation(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	base := ctx.NewInstr(fn.Entry, KUnary)
	base.Op = "-"
	base.LHS = ctx.Num(4)
	fn.Entry.Instrs = append(fn.Entry.Instrs, base)
	foldUnary(ctx, base) // collapses -4 to the Number -4

	inner := ctx.NewInstr(fn.Entry, KUnary)
	inner.Op = "-"
	inner.LHS = ctx.Num(4) // stand-in for a non-constant value
	fn.Entry.Instrs = append(fn.Entry.Instrs, inner)

	outer := ctx.NewInstr(fn.Entry, KUnary)
	outer.Op = "-"
	outer.LHS = inner
	addUse(inner, outer)
	fn.Entry.Instrs = append(fn.Entry.Instrs, outer)

	if !foldUnary(ctx, outer) {
		t.Fatal("expected double negation to fold")
	}
}

func TestFoldCmpCanonicalizesConstantToRight(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	x := ctx.NewInstr(fn.Entry, KUnary)
	x.Op = "-"
	x.LHS = ctx.Num(1)
	fn.Entry.Instrs = append(fn.Entry.Instrs, x)

	cmp := ctx.NewInstr(fn.Entry, KCmp)
	cmp.Op = "<"
	cmp.LHS = ctx.Num(5)
	cmp.RHS = x
	addUse(cmp.LHS, cmp)
	addUse(cmp.RHS, cmp)
	fn.Entry.Instrs = append(fn.Entry.Instrs, cmp)

	if !foldCmp(ctx, cmp) {
		t.Fatal("expected canonicalization to report a change")
	}
	if cmp.LHS != Value(x) || cmp.Op != ">" {
		t.Errorf("expected x > 5 after flip, got lhs=%v op=%s", cmp.LHS, cmp.Op)
	}
}

func TestFoldConstantLoad(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	c := ctx.NewConstant("C*0_1$c", []int{4}, map[int]int64{2: 42})

	load := ctx.NewInstr(fn.Entry, KLoad)
	load.Address = c
	load.Offset = ctx.Num(2)
	addUse(c, load)
	addUse(load.Offset, load)
	fn.Entry.Instrs = append(fn.Entry.Instrs, load)

	if !foldConstantLoad(ctx, load) {
		t.Fatal("expected constant load to fold")
	}
}

func TestCollapseTrivialPhiPropagatesThroughFolding(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	other := ctx.NewBlock(fn, "other")

	phi := ctx.NewInstr(fn.Entry, KPhi)
	phi.PhiVar = "x"
	phi.PhiOperands = map[*BasicBlock]Value{fn.Entry: ctx.Num(1), other: ctx.Num(1)}
	fn.Entry.Phis = append(fn.Entry.Phis, phi)

	use := ctx.NewInstr(fn.Entry, KUnary)
	use.Op = "+"
	use.LHS = phi
	addUse(phi, use)
	fn.Entry.Instrs = append(fn.Entry.Instrs, use)

	if !collapseTrivialPhi(phi) {
		t.Fatal("expected the phi to collapse")
	}
	if use.LHS == Value(phi) {
		t.Error("expected use to be redirected away from the collapsed phi")
	}
}

func TestFoldBinaryDivByZeroLeftUnfoldedAndWarned(t *testing.T) {
	ctx := NewContext()
	ctx.Reporter = errors.NewReporter()
	fn := newTestFunction(ctx, "f")
	div := binOp(ctx, fn.Entry, "/", ctx.Num(7), ctx.Num(0))

	if foldInstruction(ctx, div) {
		t.Fatal("expected division by a constant zero to stay unfolded")
	}
	if len(ctx.Reporter.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(ctx.Reporter.Warnings))
	}
	if ctx.Reporter.Warnings[0].Code != errors.WarnDivModByZeroNotFolded {
		t.Errorf("expected %s, got %s", errors.WarnDivModByZeroNotFolded, ctx.Reporter.Warnings[0].Code)
	}
}
