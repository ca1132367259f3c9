// SPDX-License-Identifier: Apache-2.0
package ir

// ConstantLocalArray promotes a local Alloc to a module Constant when
// every Store into it writes a compile-time-known value at a
// compile-time-known index (each index written at most once) and every
// other user is a Load — i.e. the array's entire contents are knowable
// without running the function.
type ConstantLocalArray struct{}

func (ConstantLocalArray) Name() string { return "constant-local-array" }

func (ConstantLocalArray) Apply(ctx *Context, m *Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		for _, block := range fn.Blocks {
			if !block.IsValid() {
				continue
			}
			for _, instr := range block.Instrs {
				if !instr.IsValid() || instr.Kind != KAlloc {
					continue
				}
				if promoteConstantArray(ctx, instr) {
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

func promoteConstantArray(ctx *Context, alloc *Instruction) bool {
	init := make(map[int]int64)
	seen := make(map[int]bool)
	var stores, loads []*Instruction

	for u := range alloc.Users() {
		instr, ok := u.(*Instruction)
		if !ok {
			return false
		}
		switch instr.Kind {
		case KStore:
			idx, ok := instr.Offset.(*Number)
			if !ok || seen[int(idx.Value)] {
				return false
			}
			val, ok := instr.RetValue.(*Number)
			if !ok {
				return false
			}
			seen[int(idx.Value)] = true
			init[int(idx.Value)] = val.Value
			stores = append(stores, instr)
		case KLoad:
			if instr.Address != Value(alloc) {
				return false
			}
			loads = append(loads, instr)
		default:
			return false
		}
	}
	if len(stores) == 0 {
		return false
	}

	c := ctx.NewConstant(alloc.CaughtVar, []int{alloc.AllocUnits}, init)
	for _, ld := range loads {
		ld.replaceOperand(alloc, c)
	}
	for _, st := range stores {
		abandon(st)
	}
	abandon(alloc)
	return true
}
