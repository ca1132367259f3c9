// SPDX-License-Identifier: Apache-2.0
package ir

// DeadArrayElimination drops a global or local Alloc whose every user is
// a Store — its contents are written but never read, so neither the
// array nor the stores into it can affect the program's observable
// behavior.
type DeadArrayElimination struct{}

func (DeadArrayElimination) Name() string { return "dead-array-elimination" }

func (DeadArrayElimination) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, g := range m.Globals {
		if g.IsValid() && writeOnly(g) {
			dropWriteOnlyArray(g)
			changed = true
		}
	}
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		for _, block := range fn.Blocks {
			if !block.IsValid() {
				continue
			}
			for _, instr := range block.Instrs {
				if instr.IsValid() && instr.Kind == KAlloc && writeOnly(instr) {
					dropWriteOnlyArray(instr)
					changed = true
				}
			}
		}
	}
	if changed {
		SweepModule(m)
	}
	return changed
}

func writeOnly(v Value) bool {
	for u := range v.Users() {
		instr, ok := u.(*Instruction)
		if !ok || instr.Kind != KStore {
			return false
		}
	}
	return true
}

func dropWriteOnlyArray(v Value) {
	for u := range v.Users() {
		abandon(u)
	}
	abandon(v)
}
