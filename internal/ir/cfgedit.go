// SPDX-License-Identifier: Apache-2.0
package ir

// severEdge removes the pred -> succ control-flow edge: drops pred's
// operand from every phi in succ (collapsing any phi that becomes
// trivial as a result), unlinks the Preds/Succs lists, and — since
// removing a predecessor edge from a block whose predecessor set becomes
// empty recursively removes that block too — abandons succ if it is now
// parentless and isn't its function's entry.
func severEdge(pred, succ *BasicBlock) {
	dropPhiOperand(succ, pred)
	succ.RemovePred(pred)
	if succ.IsValid() && succ != succ.Func.Entry && len(succ.Preds) == 0 {
		abandonBlock(succ)
	}
}

func dropPhiOperand(block, pred *BasicBlock) {
	for _, phi := range block.Phis {
		if !phi.IsValid() {
			continue
		}
		v, ok := phi.PhiOperands[pred]
		if !ok {
			continue
		}
		removeUse(v, phi)
		delete(phi.PhiOperands, pred)
		collapseTrivialPhi(phi)
	}
}

// abandonBlock removes b from its function entirely: every instruction
// and phi it holds is abandoned, b itself is invalidated, and every edge
// from b to a successor is severed (which may cascade into removing that
// successor too).
func abandonBlock(b *BasicBlock) {
	if !b.IsValid() {
		return
	}
	succs := append([]*BasicBlock{}, b.Succs...)
	for _, instr := range b.Instrs {
		abandon(instr)
	}
	for _, phi := range b.Phis {
		abandon(phi)
	}
	b.invalidate()
	for _, s := range succs {
		severEdge(b, s)
	}
}
