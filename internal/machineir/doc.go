// SPDX-License-Identifier: Apache-2.0

// Package machineir holds the fixed data model spec §6.2 names as the
// register allocator's output contract: a RegisterAssignment, a
// SpillSet, a StackFrame, and an AliveSet, gathered per function into a
// FunctionOutput. It intentionally stops there.
//
// Instruction selection, ARM text emission, and everything downstream of
// "which value lives where" are out of scope per spec.md's Non-goals
// ("no ARM text emission, no instruction selection/scheduling") and are
// left as the documented extension point this package's types exist to
// hand off to: a future internal/armasm (or similar) package would
// consume a ModuleOutput and walk internal/ir's Module a second time to
// pick concrete ARM opcodes, using the register/spill/frame decisions
// recorded here rather than re-deriving them.
package machineir
