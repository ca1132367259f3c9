// SPDX-License-Identifier: Apache-2.0

// Package regalloc implements liveness analysis, conflict-graph
// construction, and graph-coloring register allocation over the IR
// produced and optimized by internal/ir. Adapted from
// original_source/Whitee's calculate_variable_weight.cpp / liveness /
// conflict-graph / coloring passes (Whitee/src/optimize/ir,
// Whitee/src/pass), since kanso's EVM target has no registers at all to
// allocate and contributes no analogue here.
package regalloc

import (
	"math"

	"sysyarm/internal/ir"
)

// loopWeightBase, maxLoopDepth, and maxLoopWeight mirror Whitee's
// _LOOP_WEIGHT_BASE / _MAX_DEPTH / _MAX_LOOP_WEIGHT: a fixed base raised
// to a clamped loop depth, saturating so a deeply nested loop can never
// overflow or dominate every spill decision.
const (
	loopWeightBase = 4
	maxLoopDepth   = 6
	maxLoopWeight  = 1 << 20
)

// Weights maps a node eligible for a register (Parameters, lvalue
// Instructions, Phis, and — once synthesized — PhiMoves) to its
// accumulated weight, used by the allocator to pick spill victims.
type Weights map[ir.Value]uint32

// countWeight folds one more use site at depth into base, following
// Whitee's countWeight: base + loopWeightBase^clamp(depth), saturating
// at maxLoopWeight by leaving base unchanged when the addition would
// overflow it.
func countWeight(depth int, base uint32) uint32 {
	if depth > maxLoopDepth {
		depth = maxLoopDepth
	}
	if depth < 0 {
		depth = 0
	}
	step := uint32(math.Pow(loopWeightBase, float64(depth)))
	sum := base + step
	if sum < base || sum >= maxLoopWeight {
		return base
	}
	return sum
}

// ComputeWeights implements spec §4.4.1 over every parameter, lvalue
// instruction, and phi of fn. PhiMove weights are added separately by
// finalize.go once PhiMoves exist, using the same countWeight helper.
func ComputeWeights(fn *ir.Function) Weights {
	w := make(Weights)

	for _, p := range fn.Params {
		weight := countWeight(0, 0)
		for u := range p.Users() {
			if instr, ok := u.(*ir.Instruction); ok && instr.Kind != ir.KPhi {
				weight = countWeight(instr.Block.LoopDepth, weight)
			}
		}
		w[p] = weight
	}

	for _, block := range fn.Blocks {
		if !block.IsValid() {
			continue
		}
		for _, instr := range block.Instrs {
			if !instr.IsValid() || instr.Role != ir.RoleLvalue {
				continue
			}
			weight := countWeight(block.LoopDepth, w[instr])
			for u := range instr.Users() {
				if user, ok := u.(*ir.Instruction); ok && user.Kind != ir.KPhi {
					weight = countWeight(user.Block.LoopDepth, weight)
				}
			}
			w[instr] = weight
		}
		for _, phi := range block.Phis {
			if !phi.IsValid() {
				continue
			}
			weight := countWeight(block.LoopDepth, w[phi])
			for u := range phi.Users() {
				if user, ok := u.(*ir.Instruction); ok && user.Kind != ir.KPhi {
					weight = countWeight(user.Block.LoopDepth, weight)
				}
			}
			w[phi] = weight

			for pred, operand := range phi.PhiOperands {
				if _, ok := operand.(*ir.Instruction); !ok {
					if _, ok := operand.(*ir.Parameter); !ok {
						continue
					}
				}
				w[operand] = countWeight(pred.LoopDepth, w[operand])
			}
		}
	}

	return w
}
