// SPDX-License-Identifier: Apache-2.0
package ir

// Normalize performs the one-shot clean-up required immediately after
// construction, before any optimizer pass runs:
//
//  1. Any Cmp not immediately followed by a Branch is re-tagged as a
//     Binary, since it will be materialized as a 0/1 value rather than
//     consumed as a branch condition (the builder creates every
//     non-condition relational expression as a Cmp and leaves this pass to
//     sort out which ones turned out to feed a branch).
//  2. Stale φ-use-set membership left over from on-the-fly block linking: a
//     block is recorded as a φ's user exactly when its LocalVarSSA maps some
//     variable to that φ (writeVariable), but a later write to the same
//     variable in that block can leave the use-set entry behind after the
//     map entry itself has moved on. Any such leftover is dropped.
func Normalize(m *Module) {
	for _, fn := range m.Functions {
		for _, block := range fn.Blocks {
			retagCmp(block)
		}
	}
	for _, fn := range m.Functions {
		for _, block := range fn.Blocks {
			for _, phi := range block.Phis {
				pruneStalePhiUses(phi)
			}
		}
	}
}

func retagCmp(block *BasicBlock) {
	for i, instr := range block.Instrs {
		if instr.Kind != KCmp {
			continue
		}
		followedByBranch := i+1 < len(block.Instrs) &&
			block.Instrs[i+1].Kind == KBranch &&
			block.Instrs[i+1].Cond == Value(instr)
		if !followedByBranch {
			instr.Kind = KBinary
		}
	}
}

func pruneStalePhiUses(phi *Instruction) {
	for user := range phi.Users() {
		ub, ok := user.(*BasicBlock)
		if !ok {
			continue
		}
		if ub.LocalVarSSA[phi.PhiVar] != Value(phi) {
			removeUse(Value(phi), ub)
		}
	}
}
