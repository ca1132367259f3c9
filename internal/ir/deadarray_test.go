// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestDeadArrayEliminationDropsWriteOnlyGlobal(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	g := ctx.NewGlobal("V*0_1$g", []int{4}, nil, false)
	store := ctx.NewInstr(fn.Entry, KStore)
	store.Address = g
	store.Offset = ctx.Num(0)
	store.RetValue = ctx.Num(1)
	addUse(g, store)
	addUse(store.Offset, store)
	addUse(store.RetValue, store)
	fn.Entry.Instrs = append(fn.Entry.Instrs, store)

	ctx.Module.Functions = []*Function{fn}
	if !(DeadArrayElimination{}).Apply(ctx, ctx.Module) {
		t.Fatal("expected a change")
	}
	if len(ctx.Module.Globals) != 0 {
		t.Error("expected the write-only global to be swept away")
	}
	if store.IsValid() {
		t.Error("expected the store into it to be abandoned too")
	}
}

func TestDeadArrayEliminationKeepsLoadedArray(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	alloc := newLocalAlloc(ctx, fn.Entry, 4)
	storeTo(ctx, fn.Entry, alloc, 0, ctx.Num(1))
	loadFrom(ctx, fn.Entry, alloc, 0)

	ctx.Module.Functions = []*Function{fn}
	if (DeadArrayElimination{}).Apply(ctx, ctx.Module) {
		t.Error("an array that is loaded from must not be dropped")
	}
}
