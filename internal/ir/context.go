// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"

	"sysyarm/internal/ast"
	"sysyarm/internal/errors"
)

// Context is the explicit home for every piece of process-wide mutable
// state the source compiler kept as globals — the Value id counter, the
// Number interning table, and the per-kind temp-name counters — threaded
// through the builder, optimizer, and allocator instead of being
// package-level. kanso keeps an analogous counter local to its builder;
// this promotes the same idea to a shared object the later stages reuse
// too.
type Context struct {
	nextID int

	numbers map[int64]*Number
	strings map[string]*String

	tempCounters map[string]int

	Module *Module

	// Reporter receives non-fatal diagnostics raised by later stages
	// (constant folding's div/mod-by-zero fallback today) that have no
	// other way to reach the CLI's output. Left nil in tests that don't
	// care; every call site nil-checks before using it.
	Reporter *errors.Reporter
}

// NewContext creates an empty context with a fresh Module.
func NewContext() *Context {
	c := &Context{
		numbers:      make(map[int64]*Number),
		strings:      make(map[string]*String),
		tempCounters: make(map[string]int),
	}
	c.Module = &Module{valueBase: c.newBase()}
	return c
}

func (c *Context) newBase() valueBase {
	c.nextID++
	return newValueBase(c.nextID)
}

// Num returns the interned Number Value for n, creating it on first use.
func (c *Context) Num(n int64) *Number {
	if existing, ok := c.numbers[n]; ok {
		return existing
	}
	num := &Number{valueBase: c.newBase(), Value: n}
	c.numbers[n] = num
	return num
}

// Str returns the interned String Value for s.
func (c *Context) Str(s string) *String {
	if existing, ok := c.strings[s]; ok {
		return existing
	}
	str := &String{valueBase: c.newBase(), Value: s}
	c.strings[s] = str
	return str
}

// NewBlock allocates a fresh BasicBlock owned by fn, named with a
// monotonic, human-readable label.
func (c *Context) NewBlock(fn *Function, label string) *BasicBlock {
	c.tempCounters["block"]++
	b := &BasicBlock{
		valueBase:     c.newBase(),
		Func:          fn,
		Name:          fmt.Sprintf("%s.%d", label, c.tempCounters["block"]),
		LocalVarSSA:   make(map[string]Value),
		IncompletePhi: make(map[string]*Instruction),
		Sealed:        true,
	}
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// NewInstr allocates a fresh Instruction of the given kind owned by
// block. It does not insert the instruction anywhere: the caller appends
// it to block.Instrs or block.Phis (or positions it elsewhere) itself.
func (c *Context) NewInstr(block *BasicBlock, kind Kind) *Instruction {
	return &Instruction{valueBase: c.newBase(), Kind: kind, Block: block}
}

// GenName produces a fresh synthetic variable name for cross-block
// rvalue promotion.
func (c *Context) GenName(prefix string) string {
	c.tempCounters[prefix]++
	return fmt.Sprintf("%%%s%d", prefix, c.tempCounters[prefix])
}

// NewFunction allocates a Function value and registers it on the module.
func (c *Context) NewFunction(name string, returnsVoid bool) *Function {
	f := &Function{
		valueBase:          c.newBase(),
		Name:               name,
		ReturnsVoid:        returnsVoid,
		Callers:            make(map[*Function]bool),
		Callees:            make(map[*Function]bool),
		VariableRegs:       make(map[Value]int),
		VariableWithoutReg: make(map[Value]bool),
	}
	c.Module.Functions = append(c.Module.Functions, f)
	return f
}

func (c *Context) NewParameter(owner *Function, name string, index int, isPointer bool, dims []int) *Parameter {
	return &Parameter{valueBase: c.newBase(), Name: name, Owner: owner, Index: index, IsPointer: isPointer, Dims: dims}
}

func (c *Context) NewGlobal(name string, dims []int, init map[int]int64, isPointer bool) *Global {
	g := &Global{valueBase: c.newBase(), Name: name, Dims: dims, Init: init, IsPointer: isPointer}
	c.Module.Globals = append(c.Module.Globals, g)
	return g
}

func (c *Context) NewConstant(name string, dims []int, init map[int]int64) *Constant {
	elems := 1
	for _, d := range dims {
		elems *= d
	}
	con := &Constant{valueBase: c.newBase(), Name: name, Dims: dims, Elems: elems, Init: init}
	c.Module.Constants = append(c.Module.Constants, con)
	return con
}

func (c *Context) NewUndefined(varName string) *Undefined {
	return &Undefined{valueBase: c.newBase(), VarName: varName}
}
