// SPDX-License-Identifier: Apache-2.0
package ir

import "fmt"

// LoopInvariantCodeMotion hoists Binary/Unary instructions whose operands
// are all defined outside their loop into a pre-header block created on
// demand just before the loop's header, splitting the header's phis so
// the pre-header carries exactly one merged value per variable coming
// from outside the loop.
type LoopInvariantCodeMotion struct{}

func (LoopInvariantCodeMotion) Name() string { return "loop-invariant-code-motion" }

func (LoopInvariantCodeMotion) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if fn.IsValid() && hoistLoopInvariants(ctx, fn) {
			changed = true
		}
	}
	if changed {
		SweepModule(m)
	}
	return changed
}

func hoistLoopInvariants(ctx *Context, fn *Function) bool {
	dom := computeDominators(fn)
	loopsByHeader := make(map[*BasicBlock]map[*BasicBlock]bool)
	for _, a := range fn.Blocks {
		if !a.IsValid() {
			continue
		}
		for _, b := range a.Succs {
			if !dom[a][b] {
				continue // not a back edge
			}
			loop := loopsByHeader[b]
			if loop == nil {
				loop = make(map[*BasicBlock]bool)
				loopsByHeader[b] = loop
			}
			unionNaturalLoop(loop, a, b)
		}
	}

	changed := false
	for header, loopBlocks := range loopsByHeader {
		if header == fn.Entry {
			continue // degenerate case: the whole function body is one loop
		}
		if hoistOneLoop(ctx, fn, header, loopBlocks) {
			changed = true
		}
	}
	return changed
}

func unionNaturalLoop(loop map[*BasicBlock]bool, a, b *BasicBlock) {
	loop[b] = true
	if a == b {
		return
	}
	if loop[a] {
		return
	}
	stack := []*BasicBlock{a}
	loop[a] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range n.Preds {
			if !loop[p] {
				loop[p] = true
				stack = append(stack, p)
			}
		}
	}
}

func computeDominators(fn *Function) map[*BasicBlock]map[*BasicBlock]bool {
	var blocks []*BasicBlock
	for _, b := range fn.Blocks {
		if b.IsValid() {
			blocks = append(blocks, b)
		}
	}
	all := make(map[*BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		all[b] = true
	}

	dom := make(map[*BasicBlock]map[*BasicBlock]bool, len(blocks))
	for _, b := range blocks {
		if b == fn.Entry {
			dom[b] = map[*BasicBlock]bool{b: true}
		} else {
			dom[b] = cloneBlockSet(all)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, b := range blocks {
			if b == fn.Entry {
				continue
			}
			var preds []*BasicBlock
			for _, p := range b.Preds {
				if p.IsValid() {
					preds = append(preds, p)
				}
			}
			if len(preds) == 0 {
				continue
			}
			next := cloneBlockSet(dom[preds[0]])
			for _, p := range preds[1:] {
				intersectBlockSet(next, dom[p])
			}
			next[b] = true
			if !blockSetEqual(next, dom[b]) {
				dom[b] = next
				changed = true
			}
		}
	}
	return dom
}

func cloneBlockSet(s map[*BasicBlock]bool) map[*BasicBlock]bool {
	out := make(map[*BasicBlock]bool, len(s))
	for b := range s {
		out[b] = true
	}
	return out
}

func intersectBlockSet(a, b map[*BasicBlock]bool) {
	for k := range a {
		if !b[k] {
			delete(a, k)
		}
	}
}

func blockSetEqual(a, b map[*BasicBlock]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func hoistOneLoop(ctx *Context, fn *Function, header *BasicBlock, loopBlocks map[*BasicBlock]bool) bool {
	var nonLoopPreds []*BasicBlock
	for _, p := range header.Preds {
		if p.IsValid() && !loopBlocks[p] {
			nonLoopPreds = append(nonLoopPreds, p)
		}
	}
	if len(nonLoopPreds) == 0 {
		return false
	}

	hasInvariant := false
	for block := range loopBlocks {
		for _, instr := range block.Instrs {
			if instr.IsValid() && instructionIsLoopInvariant(instr, loopBlocks) {
				hasInvariant = true
			}
		}
	}
	if !hasInvariant {
		return false
	}

	pre := newPreheader(ctx, fn, header)
	changed := false

	for hoistInvariantsOnePass(fn, header, loopBlocks, pre) {
		changed = true
	}

	for _, phi := range append([]*Instruction{}, header.Phis...) {
		if !phi.IsValid() {
			continue
		}
		splitHeaderPhi(ctx, pre, phi, loopBlocks)
	}

	for _, p := range nonLoopPreds {
		redirectTerminator(p, header, pre)
		p.AddSucc(pre)
		header.RemovePred(p)
	}

	jump := ctx.NewInstr(pre, KJump)
	jump.JumpTarget = header
	pre.Instrs = append(pre.Instrs, jump)
	pre.AddSucc(header)

	return changed
}

func newPreheader(ctx *Context, fn *Function, header *BasicBlock) *BasicBlock {
	pre := ctx.NewBlock(fn, "preheader")
	pre.LoopDepth = header.LoopDepth - 1
	if pre.LoopDepth < 0 {
		pre.LoopDepth = 0
	}

	fn.Blocks = fn.Blocks[:len(fn.Blocks)-1] // undo NewBlock's trailing append
	idx := 0
	for i, b := range fn.Blocks {
		if b == header {
			idx = i
			break
		}
	}
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+1:], fn.Blocks[idx:])
	fn.Blocks[idx] = pre
	return pre
}

// hoistInvariantsOnePass scans the loop once in block/instruction order
// moving every invariant instruction it finds into pre; returns whether
// it moved anything, so the caller can repeat until a fixpoint (hoisting
// one instruction can make a user of it invariant too).
func hoistInvariantsOnePass(fn *Function, header *BasicBlock, loopBlocks map[*BasicBlock]bool, pre *BasicBlock) bool {
	changed := false
	for _, block := range fn.Blocks {
		if block == pre || !block.IsValid() || !loopBlocks[block] {
			continue
		}
		var kept []*Instruction
		for _, instr := range block.Instrs {
			if instr.IsValid() && instructionIsLoopInvariant(instr, loopBlocks) {
				instr.Block = pre
				pre.Instrs = append(pre.Instrs, instr)
				changed = true
				continue
			}
			kept = append(kept, instr)
		}
		block.Instrs = kept
	}
	return changed
}

func instructionIsLoopInvariant(instr *Instruction, loopBlocks map[*BasicBlock]bool) bool {
	if instr.Kind != KBinary && instr.Kind != KUnary {
		return false
	}
	for _, op := range instr.Operands() {
		if defined, ok := op.(*Instruction); ok && loopBlocks[defined.Block] {
			return false
		}
	}
	return true
}

// splitHeaderPhi moves phi's operands coming from outside the loop into a
// new phi in pre, leaving phi with a single new pre -> newPhi operand
// alongside whatever loop-internal operands it already had.
func splitHeaderPhi(ctx *Context, pre *BasicBlock, phi *Instruction, loopBlocks map[*BasicBlock]bool) {
	outside := make(map[*BasicBlock]Value)
	for pred, v := range phi.PhiOperands {
		if !loopBlocks[pred] {
			outside[pred] = v
		}
	}
	if len(outside) == 0 {
		return
	}
	for pred, v := range outside {
		removeUse(v, phi)
		delete(phi.PhiOperands, pred)
	}

	newPhi := ctx.NewInstr(pre, KPhi)
	newPhi.PhiVar = phi.PhiVar
	newPhi.CaughtVar = phi.PhiVar
	newPhi.Role = RoleLvalue
	newPhi.PhiOperands = outside
	for _, v := range outside {
		addUse(v, newPhi)
	}
	pre.Phis = append(pre.Phis, newPhi)

	phi.PhiOperands[pre] = Value(newPhi)
	addUse(Value(newPhi), phi)

	collapseTrivialPhi(newPhi)
	if phi.IsValid() {
		collapseTrivialPhi(phi)
	}
}

func redirectTerminator(block, from, to *BasicBlock) {
	term := block.Terminator()
	if term == nil {
		panic(fmt.Sprintf("block %s has no terminator to redirect", block.Name))
	}
	switch term.Kind {
	case KJump:
		if term.JumpTarget == from {
			term.JumpTarget = to
		}
	case KBranch:
		if term.TrueBlock == from {
			term.TrueBlock = to
		}
		if term.FalseBlock == from {
			term.FalseBlock = to
		}
	}
}
