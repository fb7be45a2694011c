// Package step implements the single-step state machine of spec.md §3
// ("Step state") and §4.3 ("Step controller"), adapted from the teacher's
// pkg/debug step-mode machine (StepInto/StepOver/StepOut and
// shouldBreak's call-depth comparison) to the exact transition table the
// spec requires, including tail-call handling and the JIT-dialect depth
// reconciliation path.
package step

// Event is the kind of per-instruction event the VM reports (spec.md §4.1:
// "event_kind ∈ {CALL, RET, LINE, COUNT, TAILCALL, TAILRET}").
type Event int

const (
	EventCall Event = iota
	EventRet
	EventLine
	EventCount
	EventTailCall
	EventTailRet
)

// Signal is a step-controller outcome that the caller must fire through
// the exported signal surface (spec.md §4.5). Zero value means no signal.
type Signal int

const (
	SignalNone Signal = iota
	SignalStepIn
	SignalStepComplete
	SignalStepOut
)

// State is spec.md §3's "Step state" record. The zero value is the
// lifecycle reset state: no step requested, skip_depth 0.
type State struct {
	WantIn   bool
	WantOver bool
	WantOut  bool

	// SkipDepth is the number of currently-entered calls step-over/out
	// should treat as transparent (spec.md glossary: "Skip depth").
	SkipDepth uint32

	// StackDepthAtCall is used only by the JIT-dialect reconciliation
	// path (spec.md §3: "used only by VM dialects whose event model lacks
	// reliable tail-return events"). A nonzero value blocks a new
	// measurement from starting.
	StackDepthAtCall uint32
	// measuring distinguishes "never started" from "measured zero",
	// since StackDepthAtCall itself can legitimately measure out at 0.
	measuring bool
}

// Reset clears step state to its lifecycle-reset value (spec.md §3: "reset
// to all-zero on every step completion and on debugger command").
func (s *State) Reset() {
	*s = State{}
}

// StackProbe measures the target VM's current call-stack depth, per
// spec.md §4.3's JIT-dialect reconciliation paragraph: "the controller
// measures the current call-stack depth by repeatedly invoking the VM's
// stack-probe function until it returns 'no more frames'." The repeated
// invocation itself is the caller's concern (cmd/hookshim wires this to
// jit_get_stack_address via CountFrames); StackProbe here is just "give me
// the current depth".
type StackProbe func() uint32

// CountFrames is a helper for StackProbe implementations: it repeatedly
// calls probeFrame(level) starting at level 0 until it returns false, and
// returns the number of live frames found. A VM's stack-probe function
// with signature "does frame N exist" adapts directly to this shape.
func CountFrames(probeFrame func(level int) bool) uint32 {
	var depth uint32
	for probeFrame(int(depth)) {
		depth++
	}
	return depth
}

// OnEvent applies event to s and returns the Signal (if any) the caller
// must fire. measureStack is consulted only for dialects that set
// needsJITReconciliation (spec.md vmdesc.Descriptor.NeedsInfoCall marks
// the same dialect that needs this); other dialects never call it.
//
// The exhaustive transition table is spec.md §4.3's table, reproduced here
// in the same row order as the spec:
//
//	CALL,      want_in                         -> step-in signal
//	CALL,      want_over || want_out            -> skip_depth++
//	TAILCALL,  want_in                          -> step-in signal
//	TAILCALL,  want_over || want_out             -> no change
//	RET/TAILRET, want_out && skip_depth==0      -> step-out signal
//	RET/TAILRET, (want_over||want_out) && skip_depth>0 -> skip_depth--
//	LINE,      (want_over||want_in) && skip_depth==0   -> step-complete signal
//	COUNT                                        -> ignored
func (s *State) OnEvent(event Event, needsJITReconciliation bool, measureStack StackProbe) Signal {
	switch event {
	case EventCall:
		if needsJITReconciliation && s.WantOver && !s.measuring {
			s.beginJITMeasurement(measureStack)
		}
		if s.WantIn {
			return SignalStepIn
		}
		if s.WantOver || s.WantOut {
			s.SkipDepth++
		}
		return SignalNone

	case EventTailCall:
		if s.WantIn {
			return SignalStepIn
		}
		// Tail calls do not deepen observable depth (spec.md §4.3).
		return SignalNone

	case EventRet, EventTailRet:
		if s.WantOut && s.SkipDepth == 0 {
			return SignalStepOut
		}
		if (s.WantOver || s.WantOut) && s.SkipDepth > 0 {
			s.SkipDepth--
		}
		return SignalNone

	case EventLine:
		if needsJITReconciliation && s.measuring {
			s.reconcileJITMeasurement(measureStack)
		}
		if (s.WantOver || s.WantIn) && s.SkipDepth == 0 {
			return SignalStepComplete
		}
		return SignalNone

	case EventCount:
		return SignalNone

	default:
		return SignalNone
	}
}

// beginJITMeasurement starts the reconciliation measurement described in
// spec.md §4.3: "on the first CALL received while want_over is active, if
// stack_depth_at_call == 0, the controller measures the current call-stack
// depth ... the measured depth is remembered."
func (s *State) beginJITMeasurement(measureStack StackProbe) {
	if s.StackDepthAtCall != 0 {
		return
	}
	if measureStack == nil {
		return
	}
	s.StackDepthAtCall = measureStack()
	s.measuring = true
}

// reconcileJITMeasurement re-measures the stack on every LINE event and,
// per spec.md §4.3, treats a shallower depth as the missing returns having
// happened atomically: "it zeroes skip_depth and clears the remembered
// depth."
func (s *State) reconcileJITMeasurement(measureStack StackProbe) {
	if measureStack == nil {
		return
	}
	current := measureStack()
	if current < s.StackDepthAtCall {
		s.SkipDepth = 0
		s.StackDepthAtCall = 0
		s.measuring = false
	}
}
