// Package hookconfig holds the async worker's poll interval as an
// overridable default, restates the breakpoint table's fixed capacities as
// constants, and provides the dev-only path for loading the generic descriptor's ten offsets
// from a YAML file instead of the exported symbol surface (see SPEC_FULL.md
// §10.3). This package never runs inside the injected shared library
// itself — cmd/hookshim is populated exclusively through the ABI in
// spec.md §6 — it exists for cmd/hookctl and integration tests.
package hookconfig

import (
	"time"

	"github.com/vmdbg/hookengine/internal/breakpoint"
	"github.com/vmdbg/hookengine/internal/vmdesc"
)

// Config is the harness-side configuration for running the hook engine
// without an injector: which dialect to decode, the generic offsets (used
// when Dialect is vmdesc.DialectUnknown or names no compiled-in
// descriptor), and the async worker's poll interval.
type Config struct {
	Dialect      vmdesc.Dialect `yaml:"dialect"`
	Generic      vmdesc.Offsets `yaml:"generic"`
	PollInterval time.Duration  `yaml:"poll_interval"`
	Tracing      bool           `yaml:"tracing"`
	MetricsLabel string         `yaml:"metrics_label"`
}

// Default returns the harness's baseline configuration: dialect V1, the
// spec's ~100ms poll interval, diagnostics off.
func Default() Config {
	return Config{
		Dialect:      vmdesc.DialectV1,
		PollInterval: 100 * time.Millisecond,
		MetricsLabel: "hookengine",
	}
}

// Descriptor resolves the Descriptor this Config names: the compile-time
// one for c.Dialect, or vmdesc.Generic(c.Generic) when c.Dialect is
// DialectUnknown or has no compiled-in descriptor.
func (c Config) Descriptor() vmdesc.Descriptor {
	if c.Dialect == vmdesc.DialectUnknown {
		return vmdesc.Generic(c.Generic)
	}
	if d, ok := vmdesc.Lookup(c.Dialect); ok {
		return d
	}
	return vmdesc.Generic(c.Generic)
}

// MaxBreakpoints and MaxSourceNameLen restate spec.md's fixed capacities
// (breakpoint.MaxEntries, breakpoint.MaxSourceNameLen) under names a
// config file can reasonably reference; they are not themselves
// configurable — spec.md §3 fixes them as invariants of the wire layout.
const (
	MaxBreakpoints   = breakpoint.MaxEntries
	MaxSourceNameLen = breakpoint.MaxSourceNameLen
)
