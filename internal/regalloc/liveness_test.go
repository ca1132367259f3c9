// SPDX-License-Identifier: Apache-2.0
package regalloc

import (
	"testing"

	"sysyarm/internal/ir"
)

func TestPropagateMarksSameBlockRange(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")

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

	Propagate(fn)

	if !mid.AliveValues[def] {
		t.Error("expected def to be alive across the instruction between its definition and its use")
	}
	if !use.AliveValues[def] {
		t.Error("expected def to be alive at its own use site")
	}
	if ret.AliveValues[def] {
		t.Error("expected def's live range to end at its use, not extend past it")
	}
}

func TestPropagateCrossesBlocks(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")
	mid := ctx.NewBlock(fn, "mid")
	user := ctx.NewBlock(fn, "user")

	def := ctx.NewInstr(fn.Entry, ir.KBinary)
	def.Op = "+"
	def.Role = ir.RoleLvalue
	j1 := ctx.NewInstr(fn.Entry, ir.KJump)
	j1.JumpTarget = mid
	fn.Entry.Instrs = append(fn.Entry.Instrs, def, j1)
	fn.Entry.AddSucc(mid)

	j2 := ctx.NewInstr(mid, ir.KJump)
	j2.JumpTarget = user
	mid.Instrs = append(mid.Instrs, j2)
	mid.AddSucc(user)

	useInstr := ctx.NewInstr(user, ir.KUnary)
	useInstr.Op = "-"
	useInstr.LHS = def
	ir.RecordUse(def, useInstr)
	ret := ctx.NewInstr(user, ir.KReturn)
	user.Instrs = append(user.Instrs, useInstr, ret)

	Propagate(fn)

	if !mid.AliveValues[def] {
		t.Error("expected def to be alive at the entry of the pass-through block")
	}
	if !user.AliveValues[def] {
		t.Error("expected def to be alive at the entry of the use block")
	}
	if !useInstr.AliveValues[def] {
		t.Error("expected def to be alive at the use instruction itself")
	}
	if fn.Entry.AliveValues[def] {
		t.Error("expected def's own defining block to not be marked entry-live for it")
	}
}

func TestPropagatePhiOperandLiveThroughPredecessorTail(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")
	join := ctx.NewBlock(fn, "join")

	def := ctx.NewInstr(fn.Entry, ir.KBinary)
	def.Op = "+"
	def.Role = ir.RoleLvalue
	jump := ctx.NewInstr(fn.Entry, ir.KJump)
	jump.JumpTarget = join
	fn.Entry.Instrs = append(fn.Entry.Instrs, def, jump)
	fn.Entry.AddSucc(join)

	phi := ctx.NewInstr(join, ir.KPhi)
	phi.PhiVar = "x"
	phi.Role = ir.RoleLvalue
	phi.PhiOperands = map[*ir.BasicBlock]ir.Value{fn.Entry: def}
	ir.RecordUse(def, phi)
	join.Phis = append(join.Phis, phi)
	ret := ctx.NewInstr(join, ir.KReturn)
	join.Instrs = append(join.Instrs, ret)

	Propagate(fn)

	if !jump.AliveValues[def] {
		t.Error("expected def to be alive through the predecessor's terminator, standing in for the future PhiMove")
	}
}

func TestPropagateDoesNotCrossIntoSiblingBranch(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")
	thenBlock := ctx.NewBlock(fn, "then")
	elseBlock := ctx.NewBlock(fn, "else")
	joinBlock := ctx.NewBlock(fn, "join")

	def := ctx.NewInstr(fn.Entry, ir.KBinary)
	def.Op = "+"
	def.Role = ir.RoleLvalue
	branch := ctx.NewInstr(fn.Entry, ir.KBranch)
	fn.Entry.Instrs = append(fn.Entry.Instrs, def, branch)
	fn.Entry.AddSucc(thenBlock)
	fn.Entry.AddSucc(elseBlock)

	useInstr := ctx.NewInstr(thenBlock, ir.KUnary)
	useInstr.Op = "-"
	useInstr.LHS = def
	ir.RecordUse(def, useInstr)
	thenJump := ctx.NewInstr(thenBlock, ir.KJump)
	thenJump.JumpTarget = joinBlock
	thenBlock.Instrs = append(thenBlock.Instrs, useInstr, thenJump)
	thenBlock.AddSucc(joinBlock)

	elseOther := ctx.NewInstr(elseBlock, ir.KUnary)
	elseOther.Op = "-"
	elseOther.LHS = ctx.Num(1)
	elseJump := ctx.NewInstr(elseBlock, ir.KJump)
	elseJump.JumpTarget = joinBlock
	elseBlock.Instrs = append(elseBlock.Instrs, elseOther, elseJump)
	elseBlock.AddSucc(joinBlock)

	ret := ctx.NewInstr(joinBlock, ir.KReturn)
	joinBlock.Instrs = append(joinBlock.Instrs, ret)

	Propagate(fn)

	if !useInstr.AliveValues[def] {
		t.Error("expected def to be alive at its use in the then-branch")
	}
	if elseBlock.AliveValues[def] {
		t.Error("expected def to NOT be alive in the else-branch, which never uses it")
	}
	if elseOther.AliveValues[def] || elseJump.AliveValues[def] {
		t.Error("expected def to NOT be alive at any instruction in the sibling else-branch")
	}
}
