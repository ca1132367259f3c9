// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestLCSERedirectsIdenticalComputation(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	x := ctx.NewParameter(fn, "x", 0, false, nil)
	y := ctx.NewParameter(fn, "y", 1, false, nil)

	first := binOp(ctx, fn.Entry, "+", x, y)
	second := binOp(ctx, fn.Entry, "+", x, y)
	use := ctx.NewInstr(fn.Entry, KUnary)
	use.Op = "-"
	use.LHS = second
	addUse(second, use)
	fn.Entry.Instrs = append(fn.Entry.Instrs, use)

	if !eliminateLocalCSEInBlock(ctx, fn.Entry) {
		t.Fatal("expected a change")
	}
	if use.LHS != Value(first) {
		t.Errorf("expected use to be redirected to the first computation, got %v", use.LHS)
	}
	if first.Role != RoleLvalue {
		t.Error("expected the surviving computation to be promoted to an lvalue")
	}
	if second.IsValid() {
		t.Error("expected the duplicate computation to be abandoned")
	}
}

func TestLCSERecognizesCommutativeOperandSwap(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	x := ctx.NewParameter(fn, "x", 0, false, nil)
	y := ctx.NewParameter(fn, "y", 1, false, nil)

	first := binOp(ctx, fn.Entry, "*", x, y)
	second := binOp(ctx, fn.Entry, "*", y, x)

	if !eliminateLocalCSEInBlock(ctx, fn.Entry) {
		t.Fatal("expected commutative match to be recognized")
	}
	if second.IsValid() {
		t.Error("expected the commutative duplicate to be abandoned")
	}
	_ = first
}

func TestLCSEDoesNotMatchNonCommutativeSwap(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	x := ctx.NewParameter(fn, "x", 0, false, nil)
	y := ctx.NewParameter(fn, "y", 1, false, nil)

	binOp(ctx, fn.Entry, "-", x, y)
	second := binOp(ctx, fn.Entry, "-", y, x)

	eliminateLocalCSEInBlock(ctx, fn.Entry)

	if !second.IsValid() {
		t.Error("a - b and b - a are not the same computation and must not be merged")
	}
}
