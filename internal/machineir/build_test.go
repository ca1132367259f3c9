// SPDX-License-Identifier: Apache-2.0
package machineir

import (
	"testing"

	"sysyarm/internal/ir"
	"sysyarm/internal/regalloc"
)

func newTestFunction(ctx *ir.Context, name string) *ir.Function {
	fn := ctx.NewFunction(name, true)
	fn.Entry = ctx.NewBlock(fn, "entry")
	return fn
}

func TestBuildFunctionOutputReportsRegisterAssignment(t *testing.T) {
	ctx := ir.NewContext()
	fn := newTestFunction(ctx, "f")

	def := ctx.NewInstr(fn.Entry, ir.KBinary)
	def.Op = "+"
	def.Role = ir.RoleLvalue
	use := ctx.NewInstr(fn.Entry, ir.KUnary)
	use.Op = "-"
	use.LHS = def
	ir.RecordUse(def, use)
	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, def, use, ret)

	regalloc.Allocate(ctx, fn, 1)
	out := BuildFunctionOutput(fn)

	reg, ok := out.Registers[def.ValueID()]
	if !ok {
		t.Fatal("expected def's register assignment to carry over into the output contract")
	}
	if out.Spills[def.ValueID()] {
		t.Error("a value with a register assignment should not also appear spilled")
	}
	if reg < regalloc.RStart || reg >= regalloc.RStart+regalloc.GLBRegCount {
		t.Errorf("register %d out of the expected physical range", reg)
	}
}

func TestBuildFunctionOutputFrameSizeMatchesAllocator(t *testing.T) {
	ctx := ir.NewContext()
	fn := newTestFunction(ctx, "f")

	alloc := ctx.NewInstr(fn.Entry, ir.KAlloc)
	alloc.AllocBytes = 40
	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, alloc, ret)

	regalloc.Allocate(ctx, fn, 1)
	out := BuildFunctionOutput(fn)

	if out.Frame.Size != fn.RequiredStackSize {
		t.Errorf("expected Frame.Size to match fn.RequiredStackSize, got %d vs %d", out.Frame.Size, fn.RequiredStackSize)
	}
	offset, ok := out.Frame.AllocOffsets[alloc.ValueID()]
	if !ok {
		t.Fatal("expected the Alloc to receive a frame offset")
	}
	if offset < regalloc.StackBaselineWords*4 {
		t.Errorf("expected the Alloc's offset to sit past the baseline, got %d", offset)
	}
}

func TestBuildFunctionOutputRecordsAliveSets(t *testing.T) {
	ctx := ir.NewContext()
	fn := newTestFunction(ctx, "f")

	def := ctx.NewInstr(fn.Entry, ir.KBinary)
	def.Op = "+"
	def.Role = ir.RoleLvalue
	mid := ctx.NewInstr(fn.Entry, ir.KUnary)
	mid.Op = "-"
	use := ctx.NewInstr(fn.Entry, ir.KUnary)
	use.Op = "-"
	use.LHS = def
	ir.RecordUse(def, use)
	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, def, mid, use, ret)

	regalloc.Allocate(ctx, fn, 1)
	out := BuildFunctionOutput(fn)

	found := false
	for _, id := range out.Alive.AfterInstr[mid.ValueID()] {
		if id == def.ValueID() {
			found = true
		}
	}
	if !found {
		t.Error("expected def to show up in the alive set recorded after the intervening instruction")
	}
}

func TestBuildModuleOutputCoversEveryFunction(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.Module
	fn1 := newTestFunction(ctx, "a")
	fn1.Entry.Instrs = append(fn1.Entry.Instrs, ctx.NewInstr(fn1.Entry, ir.KReturn))
	fn2 := newTestFunction(ctx, "b")
	fn2.Entry.Instrs = append(fn2.Entry.Instrs, ctx.NewInstr(fn2.Entry, ir.KReturn))
	m.Functions = append(m.Functions, fn1, fn2)

	regalloc.Allocate(ctx, fn1, 1)
	regalloc.Allocate(ctx, fn2, 1)

	out := BuildModuleOutput(m)
	if len(out.Functions) != 2 {
		t.Fatalf("expected two function outputs, got %d", len(out.Functions))
	}
}
