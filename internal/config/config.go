// SPDX-License-Identifier: Apache-2.0

// Package config holds pipeline options populated from CLI flags.
// Command-line parsing itself is out of core scope; this struct
// is the narrow surface the core accepts from it, the way kanso's
// cmd/kanso-cli holds its own ad-hoc flags without a core dependency on
// the flag package.
package config

import "time"

// DefaultRegisterCount is GLB_REG_CNT: the number of callee-saved GPRs the
// allocator may use.
const DefaultRegisterCount = 9

// DefaultConflictGraphTimeout is the wall-clock budget the conflict-graph
// builder gets across population and propagation.
const DefaultConflictGraphTimeout = 10 * time.Second

// Config is the full set of pipeline knobs the CLI accepts.
type Config struct {
	// Optimize runs the optimizer pipeline when true. Disabling
	// it is useful for debugging a single stage in isolation.
	Optimize bool

	// RegisterCount is the requested register count; zero or negative
	// means DefaultRegisterCount. The allocator does not read it: its
	// color count is fixed at GLB_REG_CNT.
	RegisterCount int

	// ConflictGraphTimeout overrides the allocator's wall-clock budget;
	// zero means DefaultConflictGraphTimeout.
	ConflictGraphTimeout time.Duration

	// DumpIR, when non-empty, is a path the CLI writes the IR printer's
	// output to once, after register allocation.
	DumpIR string
}

// Default returns the configuration the CLI uses when no flags override
// it.
func Default() Config {
	return Config{
		Optimize:             true,
		RegisterCount:        DefaultRegisterCount,
		ConflictGraphTimeout: DefaultConflictGraphTimeout,
	}
}

// Registers returns the effective register count, applying the default
// when unset.
func (c Config) Registers() int {
	if c.RegisterCount <= 0 {
		return DefaultRegisterCount
	}
	return c.RegisterCount
}

// Timeout returns the effective conflict-graph timeout, applying the
// default when unset.
func (c Config) Timeout() time.Duration {
	if c.ConflictGraphTimeout <= 0 {
		return DefaultConflictGraphTimeout
	}
	return c.ConflictGraphTimeout
}
