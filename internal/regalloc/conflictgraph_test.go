// SPDX-License-Identifier: Apache-2.0
package regalloc

import (
	"testing"
	"time"

	"sysyarm/internal/ir"
)

func TestBuildConnectsSimultaneouslyLiveValues(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")

	a := ctx.NewInstr(fn.Entry, ir.KBinary)
	a.Op = "+"
	a.Role = ir.RoleLvalue
	b := ctx.NewInstr(fn.Entry, ir.KBinary)
	b.Op = "+"
	b.Role = ir.RoleLvalue

	useA := ctx.NewInstr(fn.Entry, ir.KUnary)
	useA.Op = "-"
	useA.LHS = a
	ir.RecordUse(a, useA)
	useB := ctx.NewInstr(fn.Entry, ir.KUnary)
	useB.Op = "-"
	useB.LHS = b
	ir.RecordUse(b, useB)

	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, a, b, useA, useB, ret)

	Propagate(fn)
	g, ok := Build(fn, time.Second)
	if !ok {
		t.Fatal("expected Build to finish within its timeout")
	}

	if !g.Edges[a][b] {
		t.Error("expected a and b to conflict: both are live across the stretch between their definitions and uses")
	}
}

func TestBuildOmitsValuesNeverSimultaneouslyLive(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")

	a := ctx.NewInstr(fn.Entry, ir.KBinary)
	a.Op = "+"
	a.Role = ir.RoleLvalue
	useA := ctx.NewInstr(fn.Entry, ir.KUnary)
	useA.Op = "-"
	useA.LHS = a
	ir.RecordUse(a, useA)

	b := ctx.NewInstr(fn.Entry, ir.KBinary)
	b.Op = "+"
	b.Role = ir.RoleLvalue
	useB := ctx.NewInstr(fn.Entry, ir.KUnary)
	useB.Op = "-"
	useB.LHS = b
	ir.RecordUse(b, useB)

	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, a, useA, b, useB, ret)

	Propagate(fn)
	g, ok := Build(fn, time.Second)
	if !ok {
		t.Fatal("expected Build to finish within its timeout")
	}

	if g.Edges[a][b] {
		t.Error("expected a's live range to end before b's begins, so they should not conflict")
	}
}

func TestBuildExcludesPhiMoveAsAColorableNode(t *testing.T) {
	ctx := ir.NewContext()
	fn := newWeightTestFunction(ctx, "f")

	move := ctx.NewInstr(fn.Entry, ir.KPhiMove)
	move.BlockAliveValues = map[*ir.BasicBlock]map[ir.Value]bool{fn.Entry: {}}
	ret := ctx.NewInstr(fn.Entry, ir.KReturn)
	fn.Entry.Instrs = append(fn.Entry.Instrs, move, ret)

	Propagate(fn)
	g, ok := Build(fn, time.Second)
	if !ok {
		t.Fatal("expected Build to finish within its timeout")
	}

	if g.Nodes[move] {
		t.Error("expected a PhiMove to never become its own conflict-graph node")
	}
}
