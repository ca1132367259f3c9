// SPDX-License-Identifier: Apache-2.0

// Package ir is the core of the compiler: the SSA value graph, the
// on-the-fly SSA builder, the optimizer pipeline, and the analyses they
// share. Adapted from kanso's internal/ir (types.go/builder.go/
// optimizations.go/effects.go/printer.go split), generalized from an
// EVM stack-machine IR with no loops to a register-target IR with
// while/break/continue and graph-coloring-driven register allocation.
//
// Where kanso represents each instruction kind as its own struct
// implementing a shared Instruction interface (virtual dispatch over
// 15+ concrete types), this package collapses them into one tagged
// variant: a single Instruction struct with a Kind tag and a payload,
// following the source system's own re-architecture notes about
// replacing virtual dispatch with an exhaustive tagged union. Every
// Value (kanso keeps one Value type for instruction results only) is
// widened here to also cover Number/String/Constant/Global/Parameter/
// Undefined/BasicBlock/Function/Module, since all of these need to
// participate in use-sets.
package ir

import "fmt"

// Value is any node that can appear as an operand and track its users.
// Numbers, Strings, Constants, Globals, Parameters, Undefined markers,
// Instructions, BasicBlocks, Functions, and the Module itself are all
// Values.
type Value interface {
	ValueID() int
	Users() map[Value]bool
	IsValid() bool
	addUser(u Value)
	removeUser(u Value)
}

// valueBase is embedded by every concrete Value kind; it carries the
// monotonically assigned id, the validity flag, and the use-set every
// pass relies on to stay symmetric with the operands it records.
type valueBase struct {
	id    int
	valid bool
	users map[Value]bool
}

func newValueBase(id int) valueBase {
	return valueBase{id: id, valid: true, users: make(map[Value]bool)}
}

func (v *valueBase) ValueID() int          { return v.id }
func (v *valueBase) Users() map[Value]bool { return v.users }
func (v *valueBase) IsValid() bool         { return v.valid }
func (v *valueBase) addUser(u Value)       { v.users[u] = true }
func (v *valueBase) removeUser(u Value)    { delete(v.users, u) }
func (v *valueBase) invalidate()           { v.valid = false }

func addUse(operand, user Value) {
	if operand == nil {
		return
	}
	operand.addUser(user)
}

func removeUse(operand, user Value) {
	if operand == nil {
		return
	}
	operand.removeUser(user)
}

// RecordUse registers user as a reader of operand, for callers outside
// this package that synthesize a new instruction referencing an
// existing value — the register allocator's PhiMove synthesis being the
// only one today.
func RecordUse(operand, user Value) {
	addUse(operand, user)
}

// Number is an interned integer literal.
type Number struct {
	valueBase
	Value int64
}

// String is a string literal, used only as the putf format argument.
type String struct {
	valueBase
	Value string
}

// Constant is a named, immutable integer array, either declared directly
// as `const` or promoted from a read-only Global by the optimizer.
type Constant struct {
	valueBase
	Name  string
	Dims  []int
	Elems int // total element count, product of Dims
	Init  map[int]int64
}

// Global is a named integer scalar or array living in .data.
type Global struct {
	valueBase
	Name      string
	Dims      []int
	Init      map[int]int64
	IsPointer bool // true if the cell holds a pointer-typed value
}

// Parameter is a formal parameter of a Function.
type Parameter struct {
	valueBase
	Name      string
	IsPointer bool
	Dims      []int // set when IsPointer; Dims[0] is the decayed dimension
	Owner     *Function
	Index     int
}

// Undefined is a placeholder produced by an SSA read with no reaching
// definition on some path.
type Undefined struct {
	valueBase
	VarName string
}

func (c *Constant) Size() int { return c.Elems }

// IsArray reports whether a Parameter carries array/pointer dimensions.
func (p *Parameter) IsArray() bool { return p.IsPointer }

// Kind tags the variant an Instruction carries.
type Kind int

const (
	KReturn Kind = iota
	KBranch
	KJump
	KInvoke
	KUnary
	KBinary
	KCmp
	KAlloc
	KLoad
	KStore
	KPhi
	KPhiMove
)

func (k Kind) String() string {
	switch k {
	case KReturn:
		return "Return"
	case KBranch:
		return "Branch"
	case KJump:
		return "Jump"
	case KInvoke:
		return "Invoke"
	case KUnary:
		return "Unary"
	case KBinary:
		return "Binary"
	case KCmp:
		return "Cmp"
	case KAlloc:
		return "Alloc"
	case KLoad:
		return "Load"
	case KStore:
		return "Store"
	case KPhi:
		return "Phi"
	case KPhiMove:
		return "PhiMove"
	}
	return "?"
}

// Role is an Instruction's result role.
type Role int

const (
	RoleNone Role = iota
	RoleRvalue
	RoleLvalue
)

// Callee identifies an Invoke's target: either a user Function or one of
// the fixed built-in names.
type Callee struct {
	Func    *Function // nil when Builtin is set
	Builtin string
}

func (c Callee) String() string {
	if c.Func != nil {
		return c.Func.Name
	}
	return c.Builtin
}

// Instruction is the single tagged-variant instruction type: every field
// outside the Kind-relevant ones is simply unused for that kind.
type Instruction struct {
	valueBase

	Kind  Kind
	Block *BasicBlock

	Role      Role
	CaughtVar string // the source variable name, or a Context.GenName name for a promoted rvalue, when Role == RoleLvalue
	GenName   string // copied by constant folding; no pass sets it (promoted rvalues carry their name in CaughtVar)

	// Return
	RetValue Value // nil for void return

	// Branch / Jump
	Cond                  Value
	TrueBlock, FalseBlock *BasicBlock
	JumpTarget            *BasicBlock

	// Invoke
	Target Callee
	Args   []Value

	// PresetArgValue marks a starttime/stoptime call: the emitter must
	// preset its line-number argument register to a literal before the
	// branch, rather than evaluate it as an ordinary operand.
	PresetArgValue bool

	// Unary / Binary / Cmp
	Op  string
	LHS Value
	RHS Value

	// Alloc
	AllocBytes int
	AllocUnits int

	// Load / Store: Offset is an element-offset unless PointerArith is
	// set, in which case it is a byte offset added to produce a pointer
	// value rather than address a load/store.
	Address      Value
	Offset       Value
	PointerArith bool

	// Phi
	PhiVar      string
	PhiOperands map[*BasicBlock]Value

	// PhiMove
	SourcePhi        *Instruction
	BlockAliveValues map[*BasicBlock]map[Value]bool

	// AliveValues is populated by liveness.
	AliveValues map[Value]bool

	// LoopDepth records the builder's loop depth at definition time. The
	// register allocator's weight formula reads BasicBlock.LoopDepth, not
	// this field.
	LoopDepth int

	// RegID/Spilled are not written by the allocator, which records its
	// outcome in Function.VariableRegs and Function.VariableWithoutReg.
	RegID   int
	Spilled bool
}

// IsTerminator reports whether the instruction ends its block.
func (i *Instruction) IsTerminator() bool {
	switch i.Kind {
	case KReturn, KBranch, KJump:
		return true
	}
	return false
}

// HasResult reports whether the instruction produces a usable value.
func (i *Instruction) HasResult() bool {
	switch i.Kind {
	case KUnary, KBinary, KCmp, KLoad, KPhi:
		return true
	case KInvoke:
		if i.Target.Func != nil {
			return i.Target.Func.ReturnsInt()
		}
		switch i.Target.Builtin {
		case "getint", "getch", "getarray":
			return true
		}
	}
	return false
}

// Operands returns every Value this instruction reads, in a fixed order
// per kind — the shape every operand's use-set is checked against.
func (i *Instruction) Operands() []Value {
	switch i.Kind {
	case KReturn:
		if i.RetValue != nil {
			return []Value{i.RetValue}
		}
		return nil
	case KBranch:
		return []Value{i.Cond}
	case KJump:
		return nil
	case KInvoke:
		return append([]Value{}, i.Args...)
	case KUnary:
		return []Value{i.LHS}
	case KBinary, KCmp:
		return []Value{i.LHS, i.RHS}
	case KAlloc:
		return nil
	case KLoad:
		ops := []Value{i.Address}
		if i.Offset != nil {
			ops = append(ops, i.Offset)
		}
		return ops
	case KStore:
		ops := []Value{i.RetValue, i.Address}
		if i.Offset != nil {
			ops = append(ops, i.Offset)
		}
		return ops
	case KPhi:
		ops := make([]Value, 0, len(i.PhiOperands))
		for _, v := range i.PhiOperands {
			ops = append(ops, v)
		}
		return ops
	case KPhiMove:
		return []Value{i.SourcePhi}
	}
	return nil
}

// replaceOperand substitutes every occurrence of oldV with newV among the
// kind-specific operand fields, maintaining use-sets as it goes.
func (i *Instruction) replaceOperand(oldV, newV Value) {
	repl := func(v Value) Value {
		if v == oldV {
			return newV
		}
		return v
	}
	switch i.Kind {
	case KReturn:
		i.RetValue = repl(i.RetValue)
	case KBranch:
		i.Cond = repl(i.Cond)
	case KInvoke:
		for idx := range i.Args {
			i.Args[idx] = repl(i.Args[idx])
		}
	case KUnary:
		i.LHS = repl(i.LHS)
	case KBinary, KCmp:
		i.LHS = repl(i.LHS)
		i.RHS = repl(i.RHS)
	case KLoad:
		i.Address = repl(i.Address)
		if i.Offset != nil {
			i.Offset = repl(i.Offset)
		}
	case KStore:
		i.RetValue = repl(i.RetValue)
		i.Address = repl(i.Address)
		if i.Offset != nil {
			i.Offset = repl(i.Offset)
		}
	case KPhi:
		for b, v := range i.PhiOperands {
			if v == oldV {
				i.PhiOperands[b] = newV
			}
		}
	case KPhiMove:
		if ni, ok := newV.(*Instruction); ok {
			i.SourcePhi = ni
		}
	}
	removeUse(oldV, i)
	addUse(newV, i)
}

// BasicBlock is a straight-line sequence of instructions with no internal
// branches, plus the SSA-construction bookkeeping readVariable/
// writeVariable/sealBasicBlock need while a function is still being built.
type BasicBlock struct {
	valueBase

	Func *Function
	Name string

	Instrs []*Instruction
	Phis   []*Instruction

	Preds []*BasicBlock
	Succs []*BasicBlock

	LoopDepth int

	AliveValues map[Value]bool

	// SSA-construction state.
	Sealed        bool
	LocalVarSSA   map[string]Value
	IncompletePhi map[string]*Instruction
}

func (b *BasicBlock) String() string { return b.Name }

// AddSucc links b -> s, keeping the predecessor/successor lists
// symmetric in both directions.
func (b *BasicBlock) AddSucc(s *BasicBlock) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// RemovePred drops the b -> p / p -> b edge pair, used when dead-block
// elimination severs an edge.
func (b *BasicBlock) RemovePred(p *BasicBlock) {
	b.Preds = removeBlock(b.Preds, p)
	p.Succs = removeBlock(p.Succs, b)
}

func removeBlock(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

// Terminator returns the block's single terminating instruction, or nil
// for an as-yet-unterminated block under construction.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Function owns its parameters, blocks, and the allocator's eventual
// output.
type Function struct {
	valueBase

	Name        string
	ReturnsVoid bool
	Params      []*Parameter
	Blocks      []*BasicBlock
	Entry       *BasicBlock

	Callers map[*Function]bool
	Callees map[*Function]bool

	HasSideEffects bool

	VariableRegs       map[Value]int
	VariableWithoutReg map[Value]bool
	RequiredStackSize  int
}

func (f *Function) ReturnsInt() bool { return !f.ReturnsVoid }

// Module owns the whole program's globals, constants, strings, and
// functions.
type Module struct {
	valueBase

	Constants []*Constant
	Globals   []*Global
	Strings   []*String
	Functions []*Function
}

func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func debugID(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("#%d", v.ValueID())
}
