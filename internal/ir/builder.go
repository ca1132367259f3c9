// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"fmt"
	"sort"

	"sysyarm/internal/ast"
	"sysyarm/internal/errors"
	"sysyarm/internal/symtab"
)

// maxLoopDepth saturates BasicBlock.LoopDepth so deeply nested loops don't
// blow up the register-allocator's loop-weight formula.
const maxLoopDepth = 32

func clampDepth(d int) int {
	if d > maxLoopDepth {
		return maxLoopDepth
	}
	return d
}

// Builder lowers a resolved AST into the SSA value graph, using
// on-the-fly construction (Braun & Hack) rather than building a
// non-SSA CFG and inserting phis afterward.
type Builder struct {
	ctx      *Context
	table    *symtab.Table
	reporter *errors.Reporter

	fn  *Function
	cur *BasicBlock

	after bool // true once the current block has a terminator; later items in it are dead
	depth int  // current loop nesting, for BasicBlock.LoopDepth

	breakTargets    []*BasicBlock
	continueTargets []*BasicBlock

	globals map[string]*Global
	consts  map[string]*Constant

	funcsByUsage map[string]*Function
}

// NewBuilder creates a Builder sharing ctx. Reads with no reaching
// definition are reported as warnings through reporter (which also
// becomes ctx.Reporter when ctx has none); internal inconsistencies panic
// through errors.ICE. It assumes table was already produced by a front
// end that rejected anything malformed.
func NewBuilder(ctx *Context, table *symtab.Table, reporter *errors.Reporter) *Builder {
	if ctx.Reporter == nil {
		ctx.Reporter = reporter
	}
	return &Builder{
		ctx:          ctx,
		table:        table,
		reporter:     reporter,
		globals:      make(map[string]*Global),
		consts:       make(map[string]*Constant),
		funcsByUsage: make(map[string]*Function),
	}
}

// Build lowers cu into ctx.Module and returns it.
func (b *Builder) Build(cu *ast.CompUnit) *Module {
	b.lowerGlobalDecls(cu.Decls)

	irFns := make(map[*ast.FuncDef]*Function, len(cu.Funcs))
	for _, fn := range cu.Funcs {
		sym, ok := b.table.Functions[fn.Name]
		if !ok {
			errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("function %q missing from symbol table", fn.Name))
			continue
		}
		irFn := b.ctx.NewFunction(fn.Name, fn.Kind == ast.FuncVoid)
		b.funcsByUsage[sym.UsageName] = irFn
		irFns[fn] = irFn
	}
	for _, fn := range cu.Funcs {
		irFn, ok := irFns[fn]
		if !ok {
			continue
		}
		b.buildFunction(fn, irFn)
	}
	return b.ctx.Module
}

func (b *Builder) lowerGlobalDecls(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.ConstDecl:
			for _, def := range decl.Defs {
				b.declareGlobalConst(def.Name)
			}
		case *ast.VarDecl:
			for _, def := range decl.Defs {
				b.declareGlobalVar(def.Name)
			}
		}
	}
}

func (b *Builder) declareGlobalConst(usageName string) {
	sym, ok := b.table.ByUsageName(usageName)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("const %q missing from symbol table", usageName))
		return
	}
	if sym.Kind == symtab.ConstArray {
		b.consts[usageName] = b.ctx.NewConstant(usageName, sym.Dims, sym.ConstInit)
	}
}

func (b *Builder) declareGlobalVar(usageName string) {
	sym, ok := b.table.ByUsageName(usageName)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("global %q missing from symbol table", usageName))
		return
	}
	init := sym.ConstInit
	if init == nil {
		init = map[int]int64{}
	}
	b.globals[usageName] = b.ctx.NewGlobal(usageName, sym.Dims, init, false)
}

func (b *Builder) buildFunction(fn *ast.FuncDef, irFn *Function) {
	b.fn = irFn
	b.breakTargets = nil
	b.continueTargets = nil
	b.depth = 1

	entry := b.ctx.NewBlock(irFn, "entry")
	entry.LoopDepth = 1
	irFn.Entry = entry
	b.cur = entry
	b.after = false

	for idx, p := range fn.Params {
		sym, ok := b.table.ByUsageName(p.Name)
		if !ok {
			errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("parameter %q missing from symbol table", p.Name))
			continue
		}
		param := b.ctx.NewParameter(irFn, p.Name, idx, p.IsArray, sym.Dims)
		irFn.Params = append(irFn.Params, param)
		b.writeVariable(entry, p.Name, param)
	}

	b.lowerBlockItems(fn.Body.Items)

	if !b.after {
		ret := b.ctx.NewInstr(b.cur, KReturn)
		if irFn.ReturnsInt() {
			ret.RetValue = b.ctx.Num(0)
			addUse(ret.RetValue, ret)
		}
		b.appendInstr(ret)
		b.after = true
	}
}

// ---- statements ----

func (b *Builder) lowerBlockItems(items []ast.BlockItem) {
	for _, item := range items {
		if b.after {
			break
		}
		switch it := item.(type) {
		case *ast.ConstDecl:
			for _, def := range it.Defs {
				b.lowerLocalConst(def.Name)
			}
		case *ast.VarDecl:
			for _, def := range it.Defs {
				b.lowerLocalVar(def)
			}
		case ast.Stmt:
			b.lowerStmt(it)
		}
	}
}

func (b *Builder) lowerLocalConst(usageName string) {
	sym, ok := b.table.ByUsageName(usageName)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("const %q missing from symbol table", usageName))
		return
	}
	if sym.Kind == symtab.ConstArray {
		con := b.ctx.NewConstant(usageName, sym.Dims, sym.ConstInit)
		b.consts[usageName] = con
		b.writeVariable(b.cur, usageName, con)
	}
}

func (b *Builder) lowerLocalVar(def *ast.VarDef) {
	sym, ok := b.table.ByUsageName(def.Name)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("var %q missing from symbol table", def.Name))
		return
	}
	if sym.Kind == symtab.Array {
		alloc := b.ctx.NewInstr(b.cur, KAlloc)
		alloc.AllocUnits = sym.Size()
		alloc.AllocBytes = sym.Size() * 4
		alloc.CaughtVar = def.Name
		alloc.Role = RoleNone
		b.appendInstr(alloc)
		b.writeVariable(b.cur, def.Name, alloc)
		if len(sym.ConstInit) > 0 {
			b.presetArrayInit(alloc, sym.ConstInit)
		}
		return
	}
	if def.Init == nil {
		return
	}
	scalarInit, ok := def.Init.(*ast.ScalarInit)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("scalar %q has a non-scalar initializer", def.Name))
		return
	}
	val := b.lowerExpr(scalarInit.Value)
	b.writeVariable(b.cur, def.Name, val)
}

// presetArrayInit stores every nonzero element of a folded array
// initializer into alloc, in ascending flat-index order so the emitted
// Store sequence is deterministic.
func (b *Builder) presetArrayInit(alloc *Instruction, init map[int]int64) {
	idxs := make([]int, 0, len(init))
	for i := range init {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	for _, i := range idxs {
		b.emitStore(alloc, b.ctx.Num(int64(i)), b.ctx.Num(init[i]))
	}
}

func (b *Builder) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Block:
		b.lowerBlockItems(st.Items)
	case *ast.AssignStmt:
		val := b.lowerExpr(st.Value)
		b.lowerAssignTo(st.Target, val)
	case *ast.ExprStmt:
		b.lowerExpr(st.Value)
	case *ast.IfStmt:
		b.lowerIf(st)
	case *ast.WhileStmt:
		b.lowerWhile(st)
	case *ast.BreakStmt:
		b.emitJump(b.breakTargets[len(b.breakTargets)-1])
	case *ast.ContinueStmt:
		b.emitJump(b.continueTargets[len(b.continueTargets)-1])
	case *ast.ReturnStmt:
		b.lowerReturn(st)
	case *ast.EmptyStmt:
		// nothing to lower
	}
}

func (b *Builder) lowerReturn(st *ast.ReturnStmt) {
	ret := b.ctx.NewInstr(b.cur, KReturn)
	if st.Value != nil {
		v := b.lowerExpr(st.Value)
		ret.RetValue = v
		addUse(v, ret)
	}
	b.appendInstr(ret)
	b.after = true
}

func (b *Builder) lowerAssignTo(target *ast.LValExpr, val Value) {
	sym, ok := b.table.ByUsageName(target.Name)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("assignment target %q missing from symbol table", target.Name))
		return
	}
	if len(target.Indices) == 0 {
		if g, isGlobal := b.globals[target.Name]; isGlobal {
			b.emitStore(g, nil, val)
			return
		}
		b.writeVariable(b.cur, target.Name, val)
		return
	}
	addr := b.addressOf(target.Name)
	offset, full := b.lowerIndices(sym.Dims, target.Indices)
	if !full {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("assignment through a partial array subscript on %q", target.Name))
		return
	}
	b.emitStore(addr, offset, val)
}

// ---- if / while / break / continue ----

func (b *Builder) lowerIf(st *ast.IfStmt) {
	endIf := b.ctx.NewBlock(b.fn, "if.end")
	endIf.LoopDepth = b.depth
	thenBlk := b.ctx.NewBlock(b.fn, "if.then")
	thenBlk.LoopDepth = b.depth

	if st.Else == nil {
		b.lowerCond(st.Cond, thenBlk, endIf)

		b.cur = thenBlk
		b.after = false
		b.lowerStmt(st.Then)
		if !b.after {
			b.emitJump(endIf)
		}

		b.cur = endIf
		b.after = false
		return
	}

	elseBlk := b.ctx.NewBlock(b.fn, "if.else")
	elseBlk.LoopDepth = b.depth
	b.lowerCond(st.Cond, thenBlk, elseBlk)

	b.cur = thenBlk
	b.after = false
	b.lowerStmt(st.Then)
	thenFalls := !b.after
	if thenFalls {
		b.emitJump(endIf)
	}

	b.cur = elseBlk
	b.after = false
	b.lowerStmt(st.Else)
	elseFalls := !b.after
	if elseFalls {
		b.emitJump(endIf)
	}

	b.cur = endIf
	b.after = !(thenFalls || elseFalls)
}

func (b *Builder) lowerWhile(st *ast.WhileStmt) {
	whileBody := b.ctx.NewBlock(b.fn, "while.body")
	whileBody.Sealed = false
	whileBody.LoopDepth = clampDepth(b.depth + 1)
	whileJudge := b.ctx.NewBlock(b.fn, "while.judge")
	whileJudge.LoopDepth = b.depth
	whileEnd := b.ctx.NewBlock(b.fn, "while.end")
	whileEnd.LoopDepth = b.depth

	// Entry test, lowered in the block that precedes the loop.
	b.lowerCond(st.Cond, whileBody, whileEnd)

	b.breakTargets = append(b.breakTargets, whileEnd)
	b.continueTargets = append(b.continueTargets, whileJudge)
	savedDepth := b.depth
	b.depth = whileBody.LoopDepth

	b.cur = whileBody
	b.after = false
	b.lowerStmt(st.Body)
	if !b.after {
		b.emitJump(whileJudge)
	}

	b.depth = savedDepth
	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.continueTargets = b.continueTargets[:len(b.continueTargets)-1]

	// The tail test, re-lowered in whileJudge, only exists if something
	// actually reaches it (fall-through from the body, or a continue).
	if len(whileJudge.Preds) > 0 {
		b.cur = whileJudge
		b.after = false
		b.lowerCond(st.Cond, whileBody, whileEnd)
	}

	b.sealBasicBlock(whileBody)

	b.cur = whileEnd
	b.after = false
}

// lowerCond lowers e for its truth value, branching control to trueB or
// falseB rather than materializing a 0/1 result.
func (b *Builder) lowerCond(e ast.Expr, trueB, falseB *BasicBlock) {
	if be, ok := e.(*ast.BinaryExpr); ok {
		switch be.Op {
		case ast.OpAnd:
			mid := b.ctx.NewBlock(b.fn, "land")
			mid.LoopDepth = b.depth
			b.lowerCond(be.Left, mid, falseB)
			b.cur = mid
			b.after = false
			b.lowerCond(be.Right, trueB, falseB)
			return
		case ast.OpOr:
			mid := b.ctx.NewBlock(b.fn, "lor")
			mid.LoopDepth = b.depth
			b.lowerCond(be.Left, trueB, mid)
			b.cur = mid
			b.after = false
			b.lowerCond(be.Right, trueB, falseB)
			return
		}
		if be.Op.IsRelational() {
			lhs := b.lowerExpr(be.Left)
			rhs := b.lowerExpr(be.Right)
			cmp := b.ctx.NewInstr(b.cur, KCmp)
			cmp.Op = string(be.Op)
			cmp.LHS = lhs
			cmp.RHS = rhs
			cmp.Role = RoleRvalue
			addUse(lhs, cmp)
			addUse(rhs, cmp)
			b.appendInstr(cmp)
			b.emitBranch(cmp, trueB, falseB)
			return
		}
	}
	v := b.lowerExpr(e)
	b.emitBranch(v, trueB, falseB)
}

func (b *Builder) emitBranch(cond Value, trueB, falseB *BasicBlock) {
	instr := b.ctx.NewInstr(b.cur, KBranch)
	instr.Cond = cond
	instr.TrueBlock = trueB
	instr.FalseBlock = falseB
	addUse(cond, instr)
	b.appendInstr(instr)
	b.cur.AddSucc(trueB)
	b.cur.AddSucc(falseB)
	b.after = true
}

func (b *Builder) emitJump(target *BasicBlock) {
	instr := b.ctx.NewInstr(b.cur, KJump)
	instr.JumpTarget = target
	b.appendInstr(instr)
	b.cur.AddSucc(target)
	b.after = true
}

// ---- expressions ----

func (b *Builder) lowerExpr(e ast.Expr) Value {
	switch ex := e.(type) {
	case *ast.NumberLit:
		return b.ctx.Num(ex.Value)
	case *ast.StringLit:
		return b.ctx.Str(ex.Value)
	case *ast.LValExpr:
		return b.lowerLValRead(ex)
	case *ast.UnaryExpr:
		v := b.lowerExpr(ex.Operand)
		instr := b.ctx.NewInstr(b.cur, KUnary)
		instr.Op = string(ex.Op)
		instr.LHS = v
		instr.Role = RoleRvalue
		addUse(v, instr)
		b.appendInstr(instr)
		return instr
	case *ast.BinaryExpr:
		if ex.Op.IsShortCircuit() {
			return b.lowerShortCircuitValue(ex)
		}
		lhs := b.lowerExpr(ex.Left)
		rhs := b.lowerExpr(ex.Right)
		kind := KBinary
		if ex.Op.IsRelational() {
			kind = KCmp
		}
		instr := b.ctx.NewInstr(b.cur, kind)
		instr.Op = string(ex.Op)
		instr.LHS = lhs
		instr.RHS = rhs
		instr.Role = RoleRvalue
		addUse(lhs, instr)
		addUse(rhs, instr)
		b.appendInstr(instr)
		return instr
	case *ast.CallExpr:
		return b.lowerCall(ex)
	}
	return b.ctx.Num(0)
}

// lowerShortCircuitValue materializes a && or || used in value position
// (assigned, passed as an argument) rather than directly as a condition.
// It threads a synthetic variable through writeVariable/readVariable so
// the merge point's phi falls out of the ordinary on-the-fly construction
// instead of being built by hand.
func (b *Builder) lowerShortCircuitValue(ex *ast.BinaryExpr) Value {
	trueB := b.ctx.NewBlock(b.fn, "bool.true")
	falseB := b.ctx.NewBlock(b.fn, "bool.false")
	mergeB := b.ctx.NewBlock(b.fn, "bool.merge")
	trueB.LoopDepth = b.depth
	falseB.LoopDepth = b.depth
	mergeB.LoopDepth = b.depth

	b.lowerCond(ex, trueB, falseB)

	name := b.ctx.GenName("bool")

	b.cur = trueB
	b.after = false
	b.writeVariable(b.cur, name, b.ctx.Num(1))
	b.emitJump(mergeB)

	b.cur = falseB
	b.after = false
	b.writeVariable(b.cur, name, b.ctx.Num(0))
	b.emitJump(mergeB)

	b.cur = mergeB
	b.after = false
	return b.readVariable(b.cur, name)
}

func (b *Builder) lowerCall(ex *ast.CallExpr) Value {
	if irFn, ok := b.funcsByUsage[ex.Callee]; ok {
		args := make([]Value, 0, len(ex.Args))
		for _, a := range ex.Args {
			args = append(args, b.lowerExpr(a))
		}
		instr := b.ctx.NewInstr(b.cur, KInvoke)
		instr.Target = Callee{Func: irFn}
		instr.Args = args
		for _, a := range args {
			addUse(a, instr)
		}
		if instr.HasResult() {
			instr.Role = RoleRvalue
		}
		b.appendInstr(instr)
		b.fn.Callees[irFn] = true
		irFn.Callers[b.fn] = true
		if instr.HasResult() {
			return instr
		}
		return nil
	}

	args := make([]Value, 0, len(ex.Args))
	for _, a := range ex.Args {
		args = append(args, b.lowerExpr(a))
	}
	instr := b.ctx.NewInstr(b.cur, KInvoke)
	instr.Target = Callee{Builtin: ex.Callee}
	instr.Args = args
	for _, a := range args {
		addUse(a, instr)
	}
	if ex.Callee == "starttime" || ex.Callee == "stoptime" {
		instr.PresetArgValue = true
	}
	if instr.HasResult() {
		instr.Role = RoleRvalue
	}
	b.appendInstr(instr)
	if instr.HasResult() {
		return instr
	}
	return nil
}

func (b *Builder) lowerLValRead(ex *ast.LValExpr) Value {
	sym, ok := b.table.ByUsageName(ex.Name)
	if !ok {
		errors.ICE(errors.ErrUnresolvedSymbol, fmt.Sprintf("read of %q missing from symbol table", ex.Name))
		return b.ctx.Num(0)
	}
	switch sym.Kind {
	case symtab.ConstScalar:
		return b.ctx.Num(sym.ConstInit[0])
	case symtab.Scalar:
		if g, isGlobal := b.globals[ex.Name]; isGlobal {
			ld := b.ctx.NewInstr(b.cur, KLoad)
			ld.Address = g
			ld.Role = RoleRvalue
			addUse(g, ld)
			b.appendInstr(ld)
			return ld
		}
		return b.readVariable(b.cur, ex.Name)
	case symtab.ConstArray, symtab.Array:
		addr := b.addressOf(ex.Name)
		if len(ex.Indices) == 0 {
			return addr
		}
		offset, full := b.lowerIndices(sym.Dims, ex.Indices)
		if full {
			ld := b.ctx.NewInstr(b.cur, KLoad)
			ld.Address = addr
			ld.Offset = offset
			ld.Role = RoleRvalue
			addUse(addr, ld)
			addUse(offset, ld)
			b.appendInstr(ld)
			return ld
		}
		ptr := b.ctx.NewInstr(b.cur, KBinary)
		ptr.Op = "+"
		ptr.LHS = addr
		ptr.RHS = offset
		ptr.Role = RoleRvalue
		ptr.PointerArith = true
		addUse(addr, ptr)
		addUse(offset, ptr)
		b.appendInstr(ptr)
		return ptr
	}
	return b.ctx.Num(0)
}

// addressOf resolves name to the Value carrying its base address: a
// Global, a Constant, a local array's Alloc, or a pointer Parameter (the
// latter two reached through the ordinary SSA variable map).
func (b *Builder) addressOf(name string) Value {
	if g, ok := b.globals[name]; ok {
		return g
	}
	if c, ok := b.consts[name]; ok {
		return c
	}
	return b.readVariable(b.cur, name)
}

// lowerIndices computes the offset for a subscript chain against dims: a
// full subscript (len(indices) == len(dims)) yields an element offset
// for Load/Store; a partial one yields a byte offset for pointer
// arithmetic instead.
func (b *Builder) lowerIndices(dims []int, indices []ast.Expr) (Value, bool) {
	var offset Value = b.ctx.Num(0)
	for j, idxExpr := range indices {
		idxVal := b.lowerExpr(idxExpr)
		stride := 1
		for _, d := range dims[j+1:] {
			stride *= d
		}
		term := b.emitBinary("*", idxVal, b.ctx.Num(int64(stride)))
		offset = b.emitBinary("+", offset, term)
	}
	full := len(indices) == len(dims)
	if !full {
		offset = b.emitBinary("*", offset, b.ctx.Num(4))
	}
	return offset, full
}

func (b *Builder) emitBinary(op string, l, r Value) Value {
	instr := b.ctx.NewInstr(b.cur, KBinary)
	instr.Op = op
	instr.LHS = l
	instr.RHS = r
	instr.Role = RoleRvalue
	addUse(l, instr)
	addUse(r, instr)
	b.appendInstr(instr)
	return instr
}

func (b *Builder) emitStore(addr, offset, val Value) {
	instr := b.ctx.NewInstr(b.cur, KStore)
	instr.Address = addr
	instr.Offset = offset
	instr.RetValue = val
	instr.Role = RoleNone
	addUse(addr, instr)
	if offset != nil {
		addUse(offset, instr)
	}
	addUse(val, instr)
	b.appendInstr(instr)
}

func (b *Builder) appendInstr(instr *Instruction) {
	instr.Block = b.cur
	instr.LoopDepth = b.depth
	b.cur.Instrs = append(b.cur.Instrs, instr)
}

// ---- on-the-fly SSA construction (Braun & Hack) ----

func (b *Builder) writeVariable(block *BasicBlock, name string, value Value) {
	block.LocalVarSSA[name] = value
	if instr, ok := value.(*Instruction); ok && instr.Kind == KPhi {
		addUse(value, block)
	}
}

func (b *Builder) readVariable(block *BasicBlock, name string) Value {
	if v, ok := block.LocalVarSSA[name]; ok {
		return v
	}
	return b.readVariableRecursive(block, name)
}

func (b *Builder) readVariableRecursive(block *BasicBlock, name string) Value {
	if !block.Sealed {
		phi := b.newPhi(block, name)
		block.IncompletePhi[name] = phi
		b.writeVariable(block, name, phi)
		return phi
	}
	if len(block.Preds) == 1 {
		v := b.readVariable(block.Preds[0], name)
		b.writeVariable(block, name, v)
		return v
	}
	phi := b.newPhi(block, name)
	b.writeVariable(block, name, phi) // break cycles among the block's own predecessors
	val := b.addPhiOperands(block, name, phi)
	b.writeVariable(block, name, val)
	return val
}

func (b *Builder) newPhi(block *BasicBlock, name string) *Instruction {
	phi := b.ctx.NewInstr(block, KPhi)
	phi.PhiVar = name
	phi.CaughtVar = name
	phi.Role = RoleLvalue
	phi.PhiOperands = make(map[*BasicBlock]Value)
	block.Phis = append(block.Phis, phi)
	return phi
}

func (b *Builder) addPhiOperands(block *BasicBlock, name string, phi *Instruction) Value {
	for _, pred := range block.Preds {
		v := b.readVariable(pred, name)
		phi.PhiOperands[pred] = v
		addUse(v, phi)
	}
	return b.removeTrivialPhi(phi)
}

// removeTrivialPhi collapses a phi whose operands (ignoring self-references)
// are all the same value into that value, rewriting every recorded user —
// instruction operands, other phis' operand maps, and the defining block's
// LocalVarSSA entry — and recursing into any phi user that might now also
// be trivial.
func (b *Builder) removeTrivialPhi(phi *Instruction) Value {
	var same Value
	for _, op := range phi.PhiOperands {
		if op == Value(phi) || op == same {
			continue
		}
		if same != nil {
			return phi
		}
		same = op
	}
	if same == nil {
		same = b.ctx.NewUndefined(phi.PhiVar)
		b.reporter.Warn(errors.WarnUndefinedRead, fmt.Sprintf("%q has no reaching definition on some path", phi.PhiVar), ast.Position{})
	}

	users := make([]Value, 0, len(phi.Users()))
	for u := range phi.Users() {
		users = append(users, u)
	}

	var phiUsers []*Instruction
	for _, u := range users {
		switch uu := u.(type) {
		case *Instruction:
			if uu == phi {
				continue
			}
			uu.replaceOperand(phi, same)
			if uu.Kind == KPhi {
				phiUsers = append(phiUsers, uu)
			}
		case *BasicBlock:
			for varName, v := range uu.LocalVarSSA {
				if v == Value(phi) {
					uu.LocalVarSSA[varName] = same
				}
			}
			removeUse(Value(phi), uu)
			addUse(same, uu)
		}
	}

	for _, op := range phi.PhiOperands {
		removeUse(op, phi)
	}
	phi.PhiOperands = nil
	phi.valid = false
	b.detachPhi(phi)

	for _, p := range phiUsers {
		b.removeTrivialPhi(p)
	}
	return same
}

func (b *Builder) detachPhi(phi *Instruction) {
	block := phi.Block
	out := block.Phis[:0]
	for _, p := range block.Phis {
		if p != phi {
			out = append(out, p)
		}
	}
	block.Phis = out
}

// sealBasicBlock marks block as having all its predecessors known,
// resolving every phi that was left incomplete while it was unsealed.
func (b *Builder) sealBasicBlock(block *BasicBlock) {
	for name, phi := range block.IncompletePhi {
		b.addPhiOperands(block, name, phi)
	}
	block.IncompletePhi = make(map[string]*Instruction)
	block.Sealed = true
}
