// SPDX-License-Identifier: Apache-2.0
package ir

// invalidator is implemented by every Value through the embedded
// valueBase; it is kept unexported because only abandon should ever
// flip a Value from live to dead.
type invalidator interface {
	invalidate()
}

// abandon deletes v cooperatively: marks it invalid, removes it from the
// use-set of every operand it read, and recursively abandons any operand
// whose use-set becomes empty as a result — except an Invoke, which is
// never auto-abandoned since a call may have side effects even with no
// one consuming its result.
//
// abandon does not physically remove v from its container (block,
// module list, operand slot); callers sweep containers for invalid
// entries separately, via SweepFunction/SweepModule.
func abandon(v Value) {
	if v == nil || !v.IsValid() {
		return
	}
	if inv, ok := v.(invalidator); ok {
		inv.invalidate()
	}
	instr, ok := v.(*Instruction)
	if !ok {
		return
	}
	for _, operand := range instr.Operands() {
		if operand == nil {
			continue
		}
		removeUse(operand, instr)
		if len(operand.Users()) > 0 {
			continue
		}
		if oi, ok := operand.(*Instruction); ok && oi.Kind == KInvoke {
			continue
		}
		abandon(operand)
	}
}

func filterValidInstrs(in []*Instruction) []*Instruction {
	out := in[:0]
	for _, instr := range in {
		if instr.IsValid() {
			out = append(out, instr)
		}
	}
	return out
}

// sweepBlock physically drops invalid instructions and phis from b.
func sweepBlock(b *BasicBlock) {
	b.Instrs = filterValidInstrs(b.Instrs)
	b.Phis = filterValidInstrs(b.Phis)
}

// SweepFunction drops invalid blocks (and, within surviving blocks,
// invalid instructions/phis) from fn.
func SweepFunction(fn *Function) {
	out := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if !b.IsValid() {
			continue
		}
		sweepBlock(b)
		out = append(out, b)
	}
	fn.Blocks = out
}

// SweepModule drops invalid functions, globals, and constants from m,
// sweeping the blocks of every surviving function along the way.
func SweepModule(m *Module) {
	outF := m.Functions[:0]
	for _, f := range m.Functions {
		if !f.IsValid() {
			continue
		}
		SweepFunction(f)
		outF = append(outF, f)
	}
	m.Functions = outF

	outG := m.Globals[:0]
	for _, g := range m.Globals {
		if g.IsValid() {
			outG = append(outG, g)
		}
	}
	m.Globals = outG

	outC := m.Constants[:0]
	for _, c := range m.Constants {
		if c.IsValid() {
			outC = append(outC, c)
		}
	}
	m.Constants = outC
}
