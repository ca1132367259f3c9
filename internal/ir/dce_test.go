// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestDeadCodeEliminationDropsUncalledFunction(t *testing.T) {
	ctx := NewContext()
	main := newTestFunction(ctx, "main")
	main.Entry.Instrs = append(main.Entry.Instrs, terminatingReturn(ctx, main.Entry))

	unused := newTestFunction(ctx, "F*0_1$helper")
	unused.Entry.Instrs = append(unused.Entry.Instrs, terminatingReturn(ctx, unused.Entry))

	ctx.Module.Functions = []*Function{main, unused}
	if !(DeadCodeElimination{}).Apply(ctx, ctx.Module) {
		t.Fatal("expected a change")
	}
	if len(ctx.Module.Functions) != 1 || ctx.Module.Functions[0].Name != "main" {
		t.Errorf("expected only main to survive, got %v", ctx.Module.Functions)
	}
}

func TestDeadCodeEliminationKeepsCalledFunction(t *testing.T) {
	ctx := NewContext()
	callee := newTestFunction(ctx, "F*0_1$callee")
	callee.Entry.Instrs = append(callee.Entry.Instrs, terminatingReturn(ctx, callee.Entry))

	main := newTestFunction(ctx, "main")
	call := ctx.NewInstr(main.Entry, KInvoke)
	call.Target = Callee{Func: callee}
	main.Entry.Instrs = append(main.Entry.Instrs, call)
	main.Entry.Instrs = append(main.Entry.Instrs, terminatingReturn(ctx, main.Entry))

	ctx.Module.Functions = []*Function{main, callee}
	(DeadCodeElimination{}).Apply(ctx, ctx.Module)

	if len(ctx.Module.Functions) != 2 {
		t.Errorf("expected both functions to survive, got %v", ctx.Module.Functions)
	}
}

func TestDeadCodeEliminationPrunesUnreachableBlock(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	dead := ctx.NewBlock(fn, "dead")
	dead.Instrs = append(dead.Instrs, terminatingReturn(ctx, dead))
	fn.Entry.Instrs = append(fn.Entry.Instrs, terminatingReturn(ctx, fn.Entry))

	ctx.Module.Functions = []*Function{fn}
	if !(DeadCodeElimination{}).Apply(ctx, ctx.Module) {
		t.Fatal("expected a change")
	}
	if len(fn.Blocks) != 1 {
		t.Errorf("expected the unreachable block to be swept, got %d blocks", len(fn.Blocks))
	}
}

func TestDeadCodeEliminationDropsUnusedPureBinary(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	add := ctx.NewInstr(fn.Entry, KBinary)
	add.Op = "+"
	add.LHS = ctx.Num(1)
	add.RHS = ctx.Num(2)
	addUse(add.LHS, add)
	addUse(add.RHS, add)
	fn.Entry.Instrs = append(fn.Entry.Instrs, add, terminatingReturn(ctx, fn.Entry))

	ctx.Module.Functions = []*Function{fn}
	(DeadCodeElimination{}).Apply(ctx, ctx.Module)

	if len(fn.Entry.Instrs) != 1 {
		t.Errorf("expected the unused add to be removed, got %d instructions", len(fn.Entry.Instrs))
	}
}

func TestDeadCodeEliminationKeepsUnusedBuiltinInvoke(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	call := ctx.NewInstr(fn.Entry, KInvoke)
	call.Target = Callee{Builtin: "putint"}
	call.Args = []Value{ctx.Num(1)}
	addUse(call.Args[0], call)
	fn.Entry.Instrs = append(fn.Entry.Instrs, call, terminatingReturn(ctx, fn.Entry))

	ctx.Module.Functions = []*Function{fn}
	(DeadCodeElimination{}).Apply(ctx, ctx.Module)

	if len(fn.Entry.Instrs) != 2 {
		t.Error("a built-in invoke must survive even with no one reading its result")
	}
}

func terminatingReturn(ctx *Context, block *BasicBlock) *Instruction {
	ret := ctx.NewInstr(block, KReturn)
	return ret
}
