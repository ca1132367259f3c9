// SPDX-License-Identifier: Apache-2.0
package ir

// AnalyzeEffects rebuilds the call graph from every Invoke in the module
// and computes Function.HasSideEffects for each function. kanso tags each
// instruction with a typed Effect (PureEffect/MemoryEffectOp/StorageEffect)
// because its EVM target cares about storage slots and memory regions;
// this target has neither, so side effects collapse to a single
// per-function boolean the dead-code and call-graph passes consult
// directly instead of reasoning about per-instruction effect values.
func AnalyzeEffects(m *Module) {
	buildCallGraph(m)

	for _, fn := range m.Functions {
		fn.HasSideEffects = hasLocalSideEffect(fn)
	}

	// A function inherits side effects from anything it calls, and calls
	// can be mutually recursive, so propagate to a fixpoint rather than
	// in a single pass over Callees.
	for changed := true; changed; {
		changed = false
		for _, fn := range m.Functions {
			if fn.HasSideEffects {
				continue
			}
			for callee := range fn.Callees {
				if callee.HasSideEffects {
					fn.HasSideEffects = true
					changed = true
					break
				}
			}
		}
	}
}

func buildCallGraph(m *Module) {
	for _, fn := range m.Functions {
		fn.Callers = make(map[*Function]bool)
		fn.Callees = make(map[*Function]bool)
	}
	for _, fn := range m.Functions {
		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				if instr.Kind != KInvoke || instr.Target.Func == nil {
					continue
				}
				callee := instr.Target.Func
				fn.Callees[callee] = true
				callee.Callers[fn] = true
			}
		}
	}
}

// hasLocalSideEffect reports whether fn's own body, ignoring what it
// calls, already forces it to be treated as side-effecting: it takes a
// pointer parameter, touches memory through an address that isn't itself
// an Instruction result, performs pointer arithmetic on a Constant or
// Global (aliasing potential), or invokes a built-in (every built-in is
// side-effecting; see callHasSideEffect).
func hasLocalSideEffect(fn *Function) bool {
	for _, p := range fn.Params {
		if p.IsPointer {
			return true
		}
	}
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			switch instr.Kind {
			case KStore, KLoad:
				if _, ok := instr.Address.(*Instruction); !ok {
					return true
				}
			case KBinary:
				if isAliasingOperand(instr.LHS) || isAliasingOperand(instr.RHS) {
					return true
				}
			case KInvoke:
				if instr.Target.Func == nil {
					return true
				}
			}
		}
	}
	return false
}

func isAliasingOperand(v Value) bool {
	switch v.(type) {
	case *Constant, *Global:
		return true
	}
	return false
}

// CalleeIsPure reports whether invoking target can be dropped by DCE when
// its result goes unused: true only for a COMMON (user-defined) function
// proven free of side effects. Built-in calls are never pure — every
// built-in is treated as side-effecting, unconditionally.
func CalleeIsPure(target Callee) bool {
	return target.Func != nil && !target.Func.HasSideEffects
}
