// SPDX-License-Identifier: Apache-2.0
package ir

// ConstantBranchConversion rewrites a Branch whose condition is a
// constant Number into an unconditional Jump to the statically known
// target, severing the edge to the branch that can never be taken.
type ConstantBranchConversion struct{}

func (ConstantBranchConversion) Name() string { return "constant-branch-conversion" }

func (ConstantBranchConversion) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		for _, block := range fn.Blocks {
			if !block.IsValid() {
				continue
			}
			if convertConstantBranch(block) {
				changed = true
			}
		}
	}
	if changed {
		SweepModule(m)
	}
	return changed
}

func convertConstantBranch(block *BasicBlock) bool {
	term := block.Terminator()
	if term == nil || term.Kind != KBranch {
		return false
	}
	n, ok := term.Cond.(*Number)
	if !ok {
		return false
	}

	taken, dropped := term.FalseBlock, term.TrueBlock
	if n.Value != 0 {
		taken, dropped = term.TrueBlock, term.FalseBlock
	}

	removeUse(term.Cond, term)
	term.Kind = KJump
	term.JumpTarget = taken
	term.Cond, term.TrueBlock, term.FalseBlock = nil, nil, nil

	severEdge(block, dropped)
	return true
}
