// SPDX-License-Identifier: Apache-2.0
package ir

// replaceAllUses redirects every current user of oldV to newV, via each
// user's replaceOperand. Only *Instruction users are ever linked this
// way post-build: a Load/Global/Constant is never tracked through a
// block's LocalVarSSA map (only Phis are), so there is no BasicBlock
// bookkeeping left to fix up here.
func replaceAllUses(oldV, newV Value) {
	for u := range oldV.Users() {
		if instr, ok := u.(*Instruction); ok {
			instr.replaceOperand(oldV, newV)
		}
	}
}

// loadFromInit returns the constant Number stored at idx in init,
// defaulting to zero for any index the sparse map leaves unset.
func loadFromInit(ctx *Context, init map[int]int64, idx int) *Number {
	return ctx.Num(init[idx])
}

// collapseTrivialPhi is the post-construction counterpart of the builder's
// own removeTrivialPhi: every undefined-read case it would report was
// already reported while the function was being built, so a phi that
// turns trivial afterward (because folding made two of its operands equal)
// is always collapsing into a genuine reaching value, never an Undefined.
// Reports whether phi collapsed, and recurses into any phi user that
// becomes trivial as a result.
func collapseTrivialPhi(phi *Instruction) bool {
	var same Value
	for _, op := range phi.PhiOperands {
		if op == Value(phi) || op == same {
			continue
		}
		if same != nil {
			return false
		}
		same = op
	}
	if same == nil {
		return false
	}

	users := make([]Value, 0, len(phi.Users()))
	for u := range phi.Users() {
		users = append(users, u)
	}

	var phiUsers []*Instruction
	for _, u := range users {
		switch uu := u.(type) {
		case *Instruction:
			if uu == phi {
				continue
			}
			uu.replaceOperand(phi, same)
			if uu.Kind == KPhi {
				phiUsers = append(phiUsers, uu)
			}
		case *BasicBlock:
			for varName, v := range uu.LocalVarSSA {
				if v == Value(phi) {
					uu.LocalVarSSA[varName] = same
				}
			}
			removeUse(Value(phi), uu)
			addUse(same, uu)
		}
	}

	abandon(phi)
	for _, p := range phiUsers {
		collapseTrivialPhi(p)
	}
	return true
}
