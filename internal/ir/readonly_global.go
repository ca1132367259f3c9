// SPDX-License-Identifier: Apache-2.0
package ir

// ReadOnlyGlobalToConstant promotes every global that is never written
// (directly or through pointer arithmetic derived from its address, and
// never passed to a call, since a callee could store through it) into a
// Constant: scalar reads collapse to their initial value, array reads
// keep indexing the same Init map under a Constant identity instead of a
// Global one.
type ReadOnlyGlobalToConstant struct{}

func (ReadOnlyGlobalToConstant) Name() string { return "readonly-global-to-constant" }

func (ReadOnlyGlobalToConstant) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, g := range m.Globals {
		if !g.IsValid() || !globalIsReadOnly(g) {
			continue
		}
		if len(g.Dims) == 0 {
			promoteScalarGlobal(ctx, g)
		} else {
			promoteArrayGlobal(ctx, g)
		}
		abandon(g)
		changed = true
	}
	if changed {
		SweepModule(m)
	}
	return changed
}

// globalIsReadOnly reports whether neither g nor any Binary that derives
// an address from g (recursively) is ever used by a Store or passed to
// an Invoke.
func globalIsReadOnly(g *Global) bool {
	return addressIsReadOnly(g, make(map[*Instruction]bool))
}

func addressIsReadOnly(v Value, visitedBinaries map[*Instruction]bool) bool {
	for u := range v.Users() {
		instr, ok := u.(*Instruction)
		if !ok {
			continue
		}
		switch instr.Kind {
		case KStore, KInvoke:
			return false
		case KBinary:
			if visitedBinaries[instr] {
				continue
			}
			visitedBinaries[instr] = true
			if !addressIsReadOnly(instr, visitedBinaries) {
				return false
			}
		}
	}
	return true
}

func promoteScalarGlobal(ctx *Context, g *Global) {
	for u := range g.Users() {
		load, ok := u.(*Instruction)
		if !ok || load.Kind != KLoad {
			continue
		}
		n := loadFromInit(ctx, g.Init, 0)
		replaceAllUses(load, n)
		abandon(load)
	}
}

func promoteArrayGlobal(ctx *Context, g *Global) {
	c := ctx.NewConstant(g.Name, g.Dims, g.Init)
	for u := range g.Users() {
		if instr, ok := u.(*Instruction); ok {
			instr.replaceOperand(g, c)
		}
	}
}
