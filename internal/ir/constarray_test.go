// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestConstantLocalArrayPromotesFullyKnownArray(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	alloc := newLocalAlloc(ctx, fn.Entry, 2)
	alloc.CaughtVar = "arr"
	storeTo(ctx, fn.Entry, alloc, 0, ctx.Num(10))
	storeTo(ctx, fn.Entry, alloc, 1, ctx.Num(20))
	load := loadFrom(ctx, fn.Entry, alloc, 1)

	ctx.Module.Functions = []*Function{fn}
	if !(ConstantLocalArray{}).Apply(ctx, ctx.Module) {
		t.Fatal("expected promotion to report a change")
	}
	c, ok := load.Address.(*Constant)
	if !ok {
		t.Fatalf("expected the load to now read from a Constant, got %#v", load.Address)
	}
	if c.Init[1] != 20 {
		t.Errorf("expected index 1 to carry 20, got %v", c.Init)
	}
	if alloc.IsValid() {
		t.Error("expected the alloc to be abandoned")
	}
}

func TestConstantLocalArraySkipsDuplicateIndex(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	alloc := newLocalAlloc(ctx, fn.Entry, 2)
	storeTo(ctx, fn.Entry, alloc, 0, ctx.Num(1))
	storeTo(ctx, fn.Entry, alloc, 0, ctx.Num(2))

	if promoteConstantArray(ctx, alloc) {
		t.Error("an index written more than once must not be promoted")
	}
}

func TestConstantLocalArraySkipsNonConstantStoreValue(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	alloc := newLocalAlloc(ctx, fn.Entry, 2)
	dynVal := ctx.NewInstr(fn.Entry, KUnary)
	dynVal.Op = "-"
	dynVal.LHS = ctx.Num(1)
	fn.Entry.Instrs = append(fn.Entry.Instrs, dynVal)
	storeTo(ctx, fn.Entry, alloc, 0, dynVal)

	if promoteConstantArray(ctx, alloc) {
		t.Error("a store of a non-constant value must not be promoted")
	}
}
