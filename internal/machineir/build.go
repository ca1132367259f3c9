// SPDX-License-Identifier: Apache-2.0
package machineir

import (
	"sysyarm/internal/ir"
	"sysyarm/internal/regalloc"
)

const wordSize = 4

// BuildModuleOutput converts every function's allocator results
// (already written onto *ir.Function by regalloc.Allocate) into the
// fixed output-contract shape this package defines.
func BuildModuleOutput(m *ir.Module) *ModuleOutput {
	out := &ModuleOutput{}
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		out.Functions = append(out.Functions, BuildFunctionOutput(fn))
	}
	return out
}

// BuildFunctionOutput reads fn.VariableRegs / VariableWithoutReg /
// RequiredStackSize and every block/instruction's AliveValues set
// (all populated by regalloc.Allocate) and restates them as the fixed
// RegisterAssignment / SpillSet / StackFrame / AliveSet contract.
//
// The frame's per-value byte offsets are assigned to exactly the values
// regalloc's own frame-size computation counts (Phis of a block before
// its instructions here, the reverse there), so the offset after the
// last slot equals fn.RequiredStackSize.
func BuildFunctionOutput(fn *ir.Function) *FunctionOutput {
	out := &FunctionOutput{
		FunctionID:   fn.ValueID(),
		FunctionName: fn.Name,
		Registers:    make(RegisterAssignment, len(fn.VariableRegs)),
		Spills:       make(SpillSet, len(fn.VariableWithoutReg)),
		Frame: StackFrame{
			Size:           fn.RequiredStackSize,
			SpillOffsets:   make(map[int]int),
			PhiMoveOffsets: make(map[int]int),
			AllocOffsets:   make(map[int]int),
		},
		Alive: AliveSet{
			BlockEntry: make(map[int][]int),
			AfterInstr: make(map[int][]int),
		},
	}

	for v, reg := range fn.VariableRegs {
		out.Registers[v.ValueID()] = reg
	}
	for v := range fn.VariableWithoutReg {
		out.Spills[v.ValueID()] = true
	}

	// Spilled parameters get no frame slot of their own here, mirroring
	// regalloc's own frame-size walk: a parameter's value already lives
	// at a fixed incoming location per the ARM calling convention, so a
	// spill just means "reload from there", not "reserve a new slot".
	offset := regalloc.StackBaselineWords * wordSize

	for _, block := range fn.Blocks {
		if !block.IsValid() {
			continue
		}
		out.Alive.BlockEntry[block.ValueID()] = valueIDs(block.AliveValues)

		for _, phi := range block.Phis {
			if !phi.IsValid() {
				continue
			}
			if _, hasReg := fn.VariableRegs[phi]; !hasReg {
				if _, ok := out.Frame.SpillOffsets[phi.ValueID()]; !ok {
					out.Frame.SpillOffsets[phi.ValueID()] = offset
					offset += wordSize
				}
			}
		}

		for _, instr := range block.Instrs {
			if !instr.IsValid() {
				continue
			}
			out.Alive.AfterInstr[instr.ValueID()] = valueIDs(instr.AliveValues)

			switch instr.Kind {
			case ir.KPhiMove:
				out.Frame.PhiMoveOffsets[instr.ValueID()] = offset
				offset += wordSize
			case ir.KAlloc:
				out.Frame.AllocOffsets[instr.ValueID()] = offset
				offset += instr.AllocBytes
			default:
				if instr.Role == ir.RoleLvalue {
					if _, hasReg := fn.VariableRegs[instr]; !hasReg {
						out.Frame.SpillOffsets[instr.ValueID()] = offset
						offset += wordSize
					}
				}
			}
		}
	}

	return out
}

func valueIDs(alive map[ir.Value]bool) []int {
	if len(alive) == 0 {
		return nil
	}
	ids := make([]int, 0, len(alive))
	for v := range alive {
		ids = append(ids, v.ValueID())
	}
	return ids
}
