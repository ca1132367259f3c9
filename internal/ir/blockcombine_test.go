// SPDX-License-Identifier: Apache-2.0
package ir

import "testing"

func TestBlockCombinationMergesJumpChain(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	succ := ctx.NewBlock(fn, "succ")

	marker := ctx.NewInstr(succ, KUnary)
	marker.Op = "-"
	marker.LHS = ctx.Num(1)
	succ.Instrs = append(succ.Instrs, marker, terminatingReturn(ctx, succ))

	j := ctx.NewInstr(fn.Entry, KJump)
	j.JumpTarget = succ
	fn.Entry.Instrs = append(fn.Entry.Instrs, j)
	fn.Entry.AddSucc(succ)

	ctx.Module.Functions = []*Function{fn}
	if !(BlockCombination{}).Apply(ctx, ctx.Module) {
		t.Fatal("expected a change")
	}
	if len(fn.Blocks) != 1 {
		t.Errorf("expected the chain to collapse to one block, got %d", len(fn.Blocks))
	}
	if marker.Block != fn.Entry {
		t.Error("expected the successor's instruction to be reparented into the entry block")
	}
}

func TestBlockCombinationSkipsSharedSuccessor(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	other := ctx.NewBlock(fn, "other")
	shared := ctx.NewBlock(fn, "shared")
	shared.Instrs = append(shared.Instrs, terminatingReturn(ctx, shared))

	j1 := ctx.NewInstr(fn.Entry, KJump)
	j1.JumpTarget = shared
	fn.Entry.Instrs = append(fn.Entry.Instrs, j1)
	fn.Entry.AddSucc(shared)

	j2 := ctx.NewInstr(other, KJump)
	j2.JumpTarget = shared
	other.Instrs = append(other.Instrs, j2)
	other.AddSucc(shared)

	ctx.Module.Functions = []*Function{fn}
	if (BlockCombination{}).Apply(ctx, ctx.Module) {
		t.Error("a block with two predecessors must not be absorbed")
	}
	if len(fn.Blocks) != 3 {
		t.Errorf("expected all three blocks to remain, got %d", len(fn.Blocks))
	}
}

func TestBlockCombinationPatchesPhiInFurtherSuccessor(t *testing.T) {
	ctx := NewContext()
	fn := newTestFunction(ctx, "f")
	mid := ctx.NewBlock(fn, "mid")
	after := ctx.NewBlock(fn, "after")

	j1 := ctx.NewInstr(fn.Entry, KJump)
	j1.JumpTarget = mid
	fn.Entry.Instrs = append(fn.Entry.Instrs, j1)
	fn.Entry.AddSucc(mid)

	j2 := ctx.NewInstr(mid, KJump)
	j2.JumpTarget = after
	mid.Instrs = append(mid.Instrs, j2)
	mid.AddSucc(after)

	other := ctx.NewBlock(fn, "other")
	other.Instrs = append(other.Instrs, terminatingReturn(ctx, other))
	other.AddSucc(after)

	phi := ctx.NewInstr(after, KPhi)
	phi.PhiVar = "x"
	phi.PhiOperands = map[*BasicBlock]Value{mid: ctx.Num(1), other: ctx.Num(2)}
	addUse(ctx.Num(1), phi)
	addUse(ctx.Num(2), phi)
	after.Phis = append(after.Phis, phi)
	after.Instrs = append(after.Instrs, terminatingReturn(ctx, after))

	ctx.Module.Functions = []*Function{fn}
	(BlockCombination{}).Apply(ctx, ctx.Module)

	if _, ok := phi.PhiOperands[mid]; ok {
		t.Error("expected the phi operand keyed by the absorbed block to be rekeyed")
	}
	if _, ok := phi.PhiOperands[fn.Entry]; !ok {
		t.Error("expected the phi operand to now be keyed by the surviving merged block")
	}
}
