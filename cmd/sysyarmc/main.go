// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"sysyarm/internal/config"
	"sysyarm/internal/errors"
	"sysyarm/internal/ir"
	"sysyarm/internal/machineir"
	"sysyarm/internal/parser"
	"sysyarm/internal/regalloc"
	"sysyarm/internal/symtab"
)

func main() {
	cfg := parseFlags(os.Args[1:])
	if cfg.path == "" {
		fmt.Println("Usage: sysyarmc [-noopt] [-regs N] [-dump-ir path] <file.sy>")
		os.Exit(1)
	}

	source, err := os.ReadFile(cfg.path)
	if err != nil {
		color.Red("failed to read %s: %s", cfg.path, err)
		os.Exit(1)
	}

	if err := run(cfg, string(source)); err != nil {
		color.Red("%s", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	path string
	pipe config.Config
}

func parseFlags(args []string) cliConfig {
	cfg := cliConfig{pipe: config.Default()}
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-noopt":
			cfg.pipe.Optimize = false
		case "-regs":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &cfg.pipe.RegisterCount)
			}
		case "-dump-ir":
			i++
			if i < len(args) {
				cfg.pipe.DumpIR = args[i]
			}
		default:
			cfg.path = a
		}
	}
	return cfg
}

// run wires the pipeline end to end: scan -> parse -> resolve -> build ->
// normalize -> optimize -> allocate -> machine-IR output contract,
// exactly the stage order SPEC_FULL.md §0/§3 lays out. Every stage past
// parsing reports through a single *errors.Reporter rather than printing
// directly, the separation kanso's cmd/kanso-cli keeps from its Analyzer.
func run(cfg cliConfig, source string) error {
	cu, parseErrs, scanErrs := parser.ParseSource(source)
	if len(scanErrs) > 0 || len(parseErrs) > 0 {
		for _, e := range scanErrs {
			reportCaret(source, e.Line, e.Column, e.Message)
		}
		for _, e := range parseErrs {
			reportCaret(source, e.Line, e.Column, e.Message)
		}
		return fmt.Errorf("%d lexical, %d syntax error(s)", len(scanErrs), len(parseErrs))
	}

	table, resolveErrs := symtab.Resolve(cu)
	if len(resolveErrs) > 0 {
		for _, e := range resolveErrs {
			reportCaret(source, e.Position.Line, e.Position.Column, e.Message)
		}
		return fmt.Errorf("%d name resolution error(s)", len(resolveErrs))
	}

	reporter := errors.NewReporter()
	ctx := ir.NewContext()
	module := ir.NewBuilder(ctx, table, reporter).Build(cu)
	ir.Normalize(module)

	if cfg.pipe.Optimize {
		ir.Optimize(ctx, module)
	}

	// -regs is accepted and threaded through config.Config for parity with
	// the allocator's documented knobs, but regalloc.Color's k is
	// GLBRegCount (fixed at 9, colors r4-r12) rather than a runtime
	// parameter; see DESIGN.md.
	_ = cfg.pipe.Registers()
	timeout := cfg.pipe.Timeout()
	for _, fn := range module.Functions {
		if !fn.IsValid() {
			continue
		}
		regalloc.Allocate(ctx, fn, timeout.Seconds())
	}

	output := machineir.BuildModuleOutput(module)

	reporter.PrintWarnings()
	if cfg.pipe.DumpIR != "" {
		if err := os.WriteFile(cfg.pipe.DumpIR, []byte(ir.Print(module)), 0o644); err != nil {
			return fmt.Errorf("writing IR dump: %w", err)
		}
	}

	color.Green("compiled %d function(s), %d byte(s) of stack frame total", len(output.Functions), totalFrameBytes(output))
	return nil
}

func totalFrameBytes(out *machineir.ModuleOutput) int {
	total := 0
	for _, fo := range out.Functions {
		total += fo.Frame.Size
	}
	return total
}

// reportCaret prints a friendly caret-style diagnostic, the same texture
// kanso's cmd/kanso-cli uses for its own parse errors.
func reportCaret(source string, line, column int, message string) {
	lines := strings.Split(source, "\n")
	color.Red("error at %d:%d: %s", line, column, message)
	if line <= 0 || line > len(lines) {
		return
	}
	text := lines[line-1]
	caret := strings.Repeat(" ", max(column-1, 0)) + "^"
	fmt.Println(text)
	color.HiRed(caret)
}
