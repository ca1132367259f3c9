// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Printer renders a Module as human-readable text for debugging: dumping
// a pass's before/after state, or inspecting what the builder produced
// for a single function. Never consumed by any later stage — the
// allocator and emitter both walk the Module directly.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter returns an empty printer.
func NewPrinter() *Printer {
	return &Printer{}
}

// Print renders m as a single string.
func Print(m *Module) string {
	p := NewPrinter()
	p.printModule(m)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printModule(m *Module) {
	for _, c := range m.Constants {
		if !c.IsValid() {
			continue
		}
		p.writeLine("const %s%s = %s", c.Name, dimsString(c.Dims), initString(c.Init, c.Elems))
	}
	for _, g := range m.Globals {
		if !g.IsValid() {
			continue
		}
		kind := "int"
		if g.IsPointer {
			kind = "ptr"
		}
		if len(g.Dims) > 0 {
			p.writeLine("global %s %s%s = %s", kind, g.Name, dimsString(g.Dims), initString(g.Init, arrayElems(g.Dims)))
		} else {
			p.writeLine("global %s %s = %d", kind, g.Name, g.Init[0])
		}
	}
	if len(m.Constants) > 0 || len(m.Globals) > 0 {
		p.writeLine("")
	}

	for _, fn := range m.Functions {
		if !fn.IsValid() {
			continue
		}
		p.printFunction(fn)
		p.writeLine("")
	}
}

func (p *Printer) printFunction(fn *Function) {
	ret := "int"
	if fn.ReturnsVoid {
		ret = "void"
	}
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = p.valueName(param) + dimsString(param.Dims)
	}
	p.writeLine("func %s %s(%s) {", ret, fn.Name, strings.Join(params, ", "))
	p.indent++
	for _, b := range fn.Blocks {
		if !b.IsValid() {
			continue
		}
		p.printBlock(b)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(b *BasicBlock) {
	preds := make([]string, len(b.Preds))
	for i, pr := range b.Preds {
		preds[i] = pr.Name
	}
	p.writeLine("%s: ; preds = %s", b.Name, strings.Join(preds, ", "))
	p.indent++
	for _, phi := range b.Phis {
		if !phi.IsValid() {
			continue
		}
		p.printPhi(phi)
	}
	for _, instr := range b.Instrs {
		if !instr.IsValid() {
			continue
		}
		p.printInstr(instr)
	}
	p.indent--
}

func (p *Printer) printPhi(phi *Instruction) {
	sources := make([]string, 0, len(phi.PhiOperands))
	var blocks []*BasicBlock
	for blk := range phi.PhiOperands {
		blocks = append(blocks, blk)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Name < blocks[j].Name })
	for _, blk := range blocks {
		sources = append(sources, fmt.Sprintf("[%s: %s]", blk.Name, p.valueName(phi.PhiOperands[blk])))
	}
	p.writeLine("%s = phi %s %s", p.valueName(phi), phi.PhiVar, strings.Join(sources, " "))
}

func (p *Printer) printInstr(instr *Instruction) {
	lhs := ""
	if instr.HasResult() {
		lhs = p.valueName(instr) + " = "
	}
	switch instr.Kind {
	case KReturn:
		if instr.RetValue == nil {
			p.writeLine("return")
		} else {
			p.writeLine("return %s", p.valueName(instr.RetValue))
		}
	case KBranch:
		p.writeLine("branch %s, %s, %s", p.valueName(instr.Cond), instr.TrueBlock.Name, instr.FalseBlock.Name)
	case KJump:
		p.writeLine("jump %s", instr.JumpTarget.Name)
	case KInvoke:
		args := make([]string, len(instr.Args))
		for i, a := range instr.Args {
			args[i] = p.valueName(a)
		}
		p.writeLine("%scall %s(%s)", lhs, instr.Target.String(), strings.Join(args, ", "))
	case KUnary:
		p.writeLine("%s%s%s", lhs, instr.Op, p.valueName(instr.LHS))
	case KBinary, KCmp:
		p.writeLine("%s%s %s, %s", lhs, instr.Op, p.valueName(instr.LHS), p.valueName(instr.RHS))
	case KAlloc:
		p.writeLine("%salloc %d units (%d bytes)", lhs, instr.AllocUnits, instr.AllocBytes)
	case KLoad:
		if instr.Offset != nil {
			p.writeLine("%sload %s[%s]", lhs, p.valueName(instr.Address), p.valueName(instr.Offset))
		} else {
			p.writeLine("%sload %s", lhs, p.valueName(instr.Address))
		}
	case KStore:
		if instr.Offset != nil {
			p.writeLine("store %s[%s] = %s", p.valueName(instr.Address), p.valueName(instr.Offset), p.valueName(instr.RetValue))
		} else {
			p.writeLine("store %s = %s", p.valueName(instr.Address), p.valueName(instr.RetValue))
		}
	case KPhiMove:
		p.writeLine("phimove %s <- %s", p.valueName(instr.SourcePhi), p.valueName(instr))
	default:
		p.writeLine("<unknown kind %v>", instr.Kind)
	}
}

// valueName renders a stable, readable name for any operand: the source
// name when one was caught, an interned literal's own text, or a
// structural #id fallback for a bare rvalue.
func (p *Printer) valueName(v Value) string {
	if v == nil {
		return "<nil>"
	}
	switch vv := v.(type) {
	case *Number:
		return fmt.Sprintf("%d", vv.Value)
	case *String:
		return fmt.Sprintf("%q", vv.Value)
	case *Constant:
		return vv.Name
	case *Global:
		return vv.Name
	case *Parameter:
		return vv.Name
	case *Undefined:
		return fmt.Sprintf("undef(%s)", vv.VarName)
	case *Instruction:
		if vv.Kind == KPhi && vv.PhiVar != "" {
			return fmt.Sprintf("%%%s.%d", vv.PhiVar, vv.ValueID())
		}
		if vv.CaughtVar != "" {
			return fmt.Sprintf("%%%s.%d", vv.CaughtVar, vv.ValueID())
		}
		return debugID(vv)
	case *BasicBlock:
		return vv.Name
	case *Function:
		return vv.Name
	}
	return debugID(v)
}

func dimsString(dims []int) string {
	if len(dims) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, "[%d]", d)
	}
	return b.String()
}

func arrayElems(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func initString(init map[int]int64, elems int) string {
	vals := make([]string, elems)
	for i := 0; i < elems; i++ {
		vals[i] = fmt.Sprintf("%d", init[i])
	}
	return "{" + strings.Join(vals, ", ") + "}"
}
