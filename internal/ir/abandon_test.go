// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestAbandonRecursivelyDropsUnusedOperands(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")

	inner := ctx.NewInstr(fn.Entry, KUnary)
	inner.Op = "-"
	inner.LHS = ctx.Num(5)
	fn.Entry.Instrs = append(fn.Entry.Instrs, inner)

	outer := ctx.NewInstr(fn.Entry, KUnary)
	outer.Op = "-"
	outer.LHS = inner
	fn.Entry.Instrs = append(fn.Entry.Instrs, outer)
	addUse(inner, outer)

	abandon(outer)

	if outer.IsValid() {
		t.Error("outer should be invalid after abandon")
	}
	if inner.IsValid() {
		t.Error("inner lost its only user and should be abandoned transitively")
	}
}

func TestAbandonNeverCascadesIntoInvoke(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")

	call := ctx.NewInstr(fn.Entry, KInvoke)
	call.Target = Callee{Builtin: "getint"}
	fn.Entry.Instrs = append(fn.Entry.Instrs, call)

	use := ctx.NewInstr(fn.Entry, KUnary)
	use.Op = "-"
	use.LHS = call
	fn.Entry.Instrs = append(fn.Entry.Instrs, use)
	addUse(call, use)

	abandon(use)

	if !call.IsValid() {
		t.Error("an Invoke must never be auto-abandoned even with an empty use-set")
	}
}

func TestSweepFunctionDropsInvalidInstructions(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")

	dead := ctx.NewInstr(fn.Entry, KUnary)
	dead.Op = "-"
	dead.LHS = ctx.Num(1)
	fn.Entry.Instrs = append(fn.Entry.Instrs, dead)
	abandon(dead)

	SweepFunction(fn)

	if len(fn.Entry.Instrs) != 0 {
		t.Errorf("expected the invalid instruction to be swept, got %d remaining", len(fn.Entry.Instrs))
	}
}
