// SPDX-License-Identifier: Apache-2.0
package ir

// Pass is satisfied by every module-wide optimization pass. Apply mutates
// m in place and reports whether it changed anything; Optimize runs each
// pass once per round regardless of that result.
type Pass interface {
	Name() string
	Apply(ctx *Context, m *Module) bool
}

// optimizerRounds is the fixed number of times the full pass order runs.
const optimizerRounds = 2

// passOrder is the pass sequence, in the order each runs within a round.
func passOrder() []Pass {
	return []Pass{
		ReadOnlyGlobalToConstant{},
		ConstantFolding{},
		DeadCodeElimination{},
		LocalArrayFolding{},
		ConstantLocalArray{},
		DeadArrayElimination{},
		LoopInvariantCodeMotion{},
		LocalCommonSubexpressionElimination{},
		ConstantBranchConversion{},
		BlockCombination{},
	}
}

// Optimize runs the full pass order for a fixed number of rounds,
// cleaning up with dead-code elimination after each round, then gives
// every surviving cross-block rvalue and otherwise-unused Alloc/Invoke
// its final role for the register allocator to consume.
func Optimize(ctx *Context, m *Module) {
	order := passOrder()
	for r := 0; r < optimizerRounds; r++ {
		for _, p := range order {
			p.Apply(ctx, m)
		}
		(DeadCodeElimination{}).Apply(ctx, m)
	}
	finalizeRoles(ctx, m)
}

// finalizeRoles promotes a single-use rvalue read from a different block
// than its definition to a named lvalue (it will need a spill slot or a
// register live across blocks, so the allocator needs a name for it),
// and strips the result role from an Alloc or an Invoke nothing reads —
// neither should be handed a register.
func finalizeRoles(ctx *Context, m *Module) {
	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		for _, block := range fn.Blocks {
			if !block.IsValid() {
				continue
			}
			for _, instr := range block.Instrs {
				if !instr.IsValid() {
					continue
				}
				switch instr.Kind {
				case KAlloc:
					instr.Role = RoleNone
				case KInvoke:
					if instr.HasResult() && len(instr.Users()) == 0 {
						instr.Role = RoleNone
					}
				default:
					if instr.Role == RoleRvalue && instr.HasResult() {
						promoteCrossBlockRvalue(ctx, instr)
					}
				}
			}
		}
	}
}

func promoteCrossBlockRvalue(ctx *Context, instr *Instruction) {
	users := instr.Users()
	if len(users) != 1 {
		return
	}
	var only Value
	for u := range users {
		only = u
	}
	user, ok := only.(*Instruction)
	if !ok || user.Block == instr.Block {
		return
	}
	instr.Role = RoleLvalue
	if instr.CaughtVar == "" {
		instr.CaughtVar = ctx.GenName("x")
	}
}
