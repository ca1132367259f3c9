// SPDX-License-Identifier: Apache-2.0
package regalloc

import (
	"time"

	"sysyarm/internal/ir"
)

// StackBaselineWords is the fixed per-call frame overhead spec §4.4.5
// charges every function before any spill/PhiMove/Alloc space. Exported
// so internal/machineir can lay out the same frame byte-for-byte rather
// than re-deriving the constant.
const StackBaselineWords = 4

// Allocate is the real entry point: weight -> liveness -> conflict graph
// -> coloring -> finalize, writing the outcome into fn.VariableRegs /
// fn.VariableWithoutReg / fn.RequiredStackSize.
func Allocate(ctx *ir.Context, fn *ir.Function, timeoutSeconds float64) {
	weights := ComputeWeights(fn)
	Propagate(fn)

	graph, ok := Build(fn, secondsToDuration(timeoutSeconds))

	var coloring Coloring
	if ok {
		coloring = Color(graph, weights, GLBRegCount)
	} else {
		coloring = spillEverything(fn)
	}

	synthesizePhiMoves(ctx, fn, weights)
	writeAssignment(fn, coloring)
	fn.RequiredStackSize = computeStackSize(fn, coloring)
}

func spillEverything(fn *ir.Function) Coloring {
	c := Coloring{Regs: make(map[ir.Value]int), Spilled: make(map[ir.Value]bool)}
	for _, p := range fn.Params {
		c.Spilled[p] = true
	}
	for _, block := range fn.Blocks {
		if !block.IsValid() {
			continue
		}
		for _, phi := range block.Phis {
			if phi.IsValid() {
				c.Spilled[phi] = true
			}
		}
		for _, instr := range block.Instrs {
			if instr.IsValid() && instr.Role == ir.RoleLvalue {
				c.Spilled[instr] = true
			}
		}
	}
	return c
}

func writeAssignment(fn *ir.Function, coloring Coloring) {
	fn.VariableRegs = make(map[ir.Value]int, len(coloring.Regs))
	for v, reg := range coloring.Regs {
		fn.VariableRegs[v] = reg
	}
	fn.VariableWithoutReg = make(map[ir.Value]bool, len(coloring.Spilled))
	for v := range coloring.Spilled {
		fn.VariableWithoutReg[v] = true
	}
}

// synthesizePhiMoves implements spec §4.4.5's φ-elimination half: one
// PhiMove per (Phi, predecessor) pair, inserted immediately before the
// predecessor's terminator — or immediately before a Cmp that terminator
// Branch consumes, so the move never clobbers the flags the Branch
// reads. Phis themselves are never moved into Instrs: this package
// already keeps them in BasicBlock.Phis ahead of every Instrs entry, so
// "place the Phi at the very top of its block" holds without any extra
// step.
func synthesizePhiMoves(ctx *ir.Context, fn *ir.Function, weights Weights) {
	pending := make(map[*ir.BasicBlock][]*ir.Instruction)

	for _, block := range fn.Blocks {
		if !block.IsValid() {
			continue
		}
		for _, phi := range block.Phis {
			if !phi.IsValid() {
				continue
			}
			for pred, operand := range phi.PhiOperands {
				move := ctx.NewInstr(pred, ir.KPhiMove)
				move.SourcePhi = phi
				move.BlockAliveValues = map[*ir.BasicBlock]map[ir.Value]bool{
					pred: tailAliveSet(pred),
				}
				ir.RecordUse(operand, move)
				weights[move] = countWeight(pred.LoopDepth, weights[move])
				pending[pred] = append(pending[pred], move)
			}
		}
	}

	for pred, moves := range pending {
		insertBeforeTerminator(pred, moves)
	}
}

func tailAliveSet(block *ir.BasicBlock) map[ir.Value]bool {
	if len(block.Instrs) == 0 {
		return block.AliveValues
	}
	return block.Instrs[len(block.Instrs)-1].AliveValues
}

// insertBeforeTerminator splices moves into pred just ahead of its
// terminator, or ahead of a Cmp that terminator directly consumes.
func insertBeforeTerminator(pred *ir.BasicBlock, moves []*ir.Instruction) {
	n := len(pred.Instrs)
	insertAt := n
	if n > 0 {
		term := pred.Instrs[n-1]
		insertAt = n - 1
		if term.Kind == ir.KBranch && n >= 2 {
			if cmp := pred.Instrs[n-2]; cmp.Kind == ir.KCmp && ir.Value(cmp) == term.Cond {
				insertAt = n - 2
			}
		}
	}

	out := make([]*ir.Instruction, 0, n+len(moves))
	out = append(out, pred.Instrs[:insertAt]...)
	for _, m := range moves {
		m.Block = pred
	}
	out = append(out, moves...)
	out = append(out, pred.Instrs[insertAt:]...)
	pred.Instrs = out
}

func computeStackSize(fn *ir.Function, coloring Coloring) int {
	words := StackBaselineWords
	bytes := 0

	for _, block := range fn.Blocks {
		if !block.IsValid() {
			continue
		}
		for _, instr := range block.Instrs {
			if !instr.IsValid() {
				continue
			}
			switch instr.Kind {
			case ir.KPhiMove:
				words++
			case ir.KAlloc:
				bytes += instr.AllocBytes
			default:
				if instr.Role == ir.RoleLvalue {
					if _, hasReg := coloring.Regs[instr]; !hasReg {
						words++
					}
				}
			}
		}
		for _, phi := range block.Phis {
			if phi.IsValid() {
				if _, hasReg := coloring.Regs[phi]; !hasReg {
					words++
				}
			}
		}
	}

	return words*4 + bytes
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return defaultConflictTimeout
	}
	return time.Duration(s * float64(time.Second))
}
