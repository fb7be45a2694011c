// Package hookengine is THE CORE this repository implements: the state
// machine that decides, for each per-instruction event the target VM
// reports, whether it is a breakpoint hit, the completion of a
// single-step operation, a step-in/step-out notification, or neither, and
// that drives the exported signal surface accordingly (spec.md §1, §4.1).
//
// Engine is deliberately free of cgo and unsafe: internal/vmmem carries
// the one unsafe boundary (reading opaque foreign memory), and
// cmd/hookshim is the only place that wires Engine to the actual C ABI.
// That split is what makes the state machine in this package unit
// testable against the exact scenarios in spec.md §8.
package hookengine

import (
	"github.com/vmdbg/hookengine/internal/breakpoint"
	"github.com/vmdbg/hookengine/internal/frame"
	"github.com/vmdbg/hookengine/internal/hooklog"
	"github.com/vmdbg/hookengine/internal/hookmetrics"
	"github.com/vmdbg/hookengine/internal/step"
	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

// DebugRecord is the per-event structure the VM populates before invoking
// the hook (spec.md glossary: "Debug record"), as much of it as the core
// needs.
type DebugRecord struct {
	Event       step.Event
	CurrentLine int
}

// HitRecord is spec.md §3's "Hit record": published on every event that
// matches an armed breakpoint, and paired with the signal call — "the hit
// record is fully written before the signal function is called" (spec.md
// §5).
type HitRecord struct {
	HitID      int
	HitVMState vmmem.Addr
}

// Signals is the set of exported no-op signal functions the engine fires
// (spec.md §4.5, §6). A nil field is simply not called — cmd/hookshim
// wires every field; tests wire only the ones they assert on.
type Signals struct {
	OnBreakpointHit func()
	OnStepComplete  func()
	OnStepOut       func()
	OnStepIn        func()
}

// InfoRetrieval calls back into the VM's own info-retrieval function to
// populate a DebugRecord's CurrentLine, for the one dialect whose debug
// record doesn't carry it natively (spec.md §4.1, last paragraph;
// vmdesc.Descriptor.NeedsInfoCall marks this dialect). It returns false on
// failure.
type InfoRetrieval func(vmState vmmem.Addr, rec *DebugRecord) bool

// Engine ties together frame decoding, the step controller, and the
// breakpoint table for one target-VM dialect.
type Engine struct {
	Mem        vmmem.Reader
	Descriptor vmdesc.Descriptor
	Table      *breakpoint.Table
	Step       *step.State
	StackProbe step.StackProbe
	InfoCall   InfoRetrieval

	Signals Signals
	Metrics *hookmetrics.Metrics
	Log     *hooklog.Logger

	Hit HitRecord
}

// New builds an Engine for descriptor, with a fresh breakpoint table and
// step state. table and st may be supplied by the caller (e.g. the cgo
// shim's package-level state) or left nil to have New allocate them.
func New(mem vmmem.Reader, descriptor vmdesc.Descriptor, table *breakpoint.Table, st *step.State) *Engine {
	if table == nil {
		table = &breakpoint.Table{}
	}
	if st == nil {
		st = &step.State{}
	}
	return &Engine{Mem: mem, Descriptor: descriptor, Table: table, Step: st}
}

// OnEvent is spec.md §4.1's on_event(vm_state, debug_record), the hook
// entry point body shared by every VM-version-specific exported function
// (cmd/hookshim supplies one //export wrapper per dialect, all of which
// call this). It never blocks and never returns an error to the VM
// (spec.md §7): whatever happens inside, it returns normally.
func (e *Engine) OnEvent(vmState vmmem.Addr, rec DebugRecord) {
	// For the JIT dialect, the debug record's line is not trustworthy
	// until the VM's own info-retrieval function has populated it
	// (spec.md §4.1, last paragraph). A failed call means only the step
	// controller runs this event.
	infoOK := true
	if e.Descriptor.NeedsInfoCall && e.InfoCall != nil {
		infoOK = e.InfoCall(vmState, &rec)
	}

	// Step 1 — decode the active frame (spec.md §4.1 step 1).
	fr := frame.Decode(e.Mem, e.Descriptor, vmState)

	// Step 2 — step controller update (spec.md §4.1 step 2, §4.3). This
	// always runs, even when the info-retrieval call above failed.
	e.updateStep(rec.Event)

	if !infoOK {
		return
	}

	// Step 3 — breakpoint lookup (spec.md §4.1 step 3, §4.2).
	var proto uintptr
	var sourceName string
	if fr.Ok {
		proto = uintptr(fr.Proto)
		sourceName = fr.SourceName
	}

	if e.Metrics != nil {
		e.Metrics.EventsSeen.WithLabelValues(eventLabel(rec.Event)).Inc()
	}

	hitID, ok := e.Table.Match(rec.CurrentLine, proto, sourceName)
	if !ok {
		return
	}

	// The hit record is fully written before the signal is fired
	// (spec.md §5 ordering guarantee).
	e.Hit = HitRecord{HitID: hitID, HitVMState: vmState}

	if e.Metrics != nil {
		e.Metrics.BreakpointHits.WithLabelValues(e.Descriptor.Dialect.String()).Inc()
	}
	if e.Log != nil {
		e.Log.Debug("breakpoint hit", "hit_id", hitID, "line", rec.CurrentLine)
	}
	if e.Signals.OnBreakpointHit != nil {
		e.Signals.OnBreakpointHit()
	}
}

// updateStep runs the step controller for one event and fires whatever
// signal it returns (spec.md §4.3).
func (e *Engine) updateStep(event step.Event) {
	needsJIT := e.Descriptor.NeedsInfoCall
	sig := e.Step.OnEvent(event, needsJIT, e.StackProbe)

	if e.Metrics != nil {
		e.Metrics.SkipDepth.Set(float64(e.Step.SkipDepth))
	}

	var fire func()
	var label string
	switch sig {
	case step.SignalStepIn:
		fire, label = e.Signals.OnStepIn, "step_in"
	case step.SignalStepComplete:
		fire, label = e.Signals.OnStepComplete, "step_complete"
	case step.SignalStepOut:
		fire, label = e.Signals.OnStepOut, "step_out"
	default:
		return
	}

	if e.Metrics != nil {
		e.Metrics.StepCompletions.WithLabelValues(label).Inc()
	}
	if fire != nil {
		fire()
	}
}

func eventLabel(e step.Event) string {
	switch e {
	case step.EventCall:
		return "call"
	case step.EventRet:
		return "ret"
	case step.EventLine:
		return "line"
	case step.EventCount:
		return "count"
	case step.EventTailCall:
		return "tailcall"
	case step.EventTailRet:
		return "tailret"
	default:
		return "unknown"
	}
}
