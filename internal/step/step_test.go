package step_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmdbg/hookengine/internal/step"
)

// TestStepOverAcrossCall is spec.md §8 scenario 3.
func TestStepOverAcrossCall(t *testing.T) {
	s := &step.State{WantOver: true}

	require.Equal(t, step.SignalNone, s.OnEvent(step.EventCall, false, nil))
	require.EqualValues(t, 1, s.SkipDepth)

	require.Equal(t, step.SignalNone, s.OnEvent(step.EventLine, false, nil)) // LINE@20
	require.Equal(t, step.SignalNone, s.OnEvent(step.EventLine, false, nil)) // LINE@21
	require.Equal(t, step.SignalNone, s.OnEvent(step.EventRet, false, nil))
	require.EqualValues(t, 0, s.SkipDepth)

	require.Equal(t, step.SignalStepComplete, s.OnEvent(step.EventLine, false, nil)) // LINE@11
}

// TestStepInThroughTailCall is spec.md §8 scenario 4.
func TestStepInThroughTailCall(t *testing.T) {
	s := &step.State{WantIn: true}

	require.Equal(t, step.SignalStepIn, s.OnEvent(step.EventTailCall, false, nil))
	require.Equal(t, step.SignalStepComplete, s.OnEvent(step.EventLine, false, nil))
}

// TestStepOut is spec.md §8 scenario 5: the nested call's RET only brings
// skip_depth back to 0, and the signal fires on the next RET, the one that
// leaves the frame step-out started in (skip_depth==0 is checked before any
// decrement).
func TestStepOut(t *testing.T) {
	s := &step.State{WantOut: true}

	require.Equal(t, step.SignalNone, s.OnEvent(step.EventCall, false, nil))
	require.EqualValues(t, 1, s.SkipDepth)

	require.Equal(t, step.SignalNone, s.OnEvent(step.EventLine, false, nil)) // LINE@40

	require.Equal(t, step.SignalNone, s.OnEvent(step.EventRet, false, nil)) // first RET
	require.EqualValues(t, 0, s.SkipDepth)

	require.Equal(t, step.SignalStepOut, s.OnEvent(step.EventRet, false, nil)) // second RET
}

func TestNoStepFlagsNeverSignals(t *testing.T) {
	s := &step.State{}
	events := []step.Event{step.EventCall, step.EventRet, step.EventLine, step.EventCount, step.EventTailCall, step.EventTailRet}
	for i := 0; i < 50; i++ {
		for _, ev := range events {
			require.Equal(t, step.SignalNone, s.OnEvent(ev, false, nil))
		}
	}
}

func TestSkipDepthNeverNegative(t *testing.T) {
	s := &step.State{WantOut: true}
	// More returns than calls: skip_depth must clamp at 0, not go negative.
	for i := 0; i < 5; i++ {
		s.OnEvent(step.EventRet, false, nil)
	}
	require.EqualValues(t, 0, s.SkipDepth)
}

func TestCountEventIgnored(t *testing.T) {
	s := &step.State{WantIn: true, WantOver: true, WantOut: true}
	require.Equal(t, step.SignalNone, s.OnEvent(step.EventCount, false, nil))
	require.EqualValues(t, 0, s.SkipDepth)
}

// TestJITReconciliation exercises spec.md §4.3's stack-probe reconciliation
// path for the one dialect that loses RET events across JIT frames.
func TestJITReconciliation(t *testing.T) {
	s := &step.State{WantOver: true}
	depth := uint32(3)
	probe := func() uint32 { return depth }

	// CALL starts the measurement at the current (pre-call) depth.
	require.Equal(t, step.SignalNone, s.OnEvent(step.EventCall, true, probe))
	require.EqualValues(t, 3, s.StackDepthAtCall)
	require.EqualValues(t, 1, s.SkipDepth)

	// No RET events arrive (JIT dialect loses them), but the stack has
	// actually unwound below the remembered depth by the next LINE.
	depth = 2
	sig := s.OnEvent(step.EventLine, true, probe)
	require.EqualValues(t, 0, s.SkipDepth)
	require.Equal(t, step.SignalStepComplete, sig)
}

func TestReset(t *testing.T) {
	s := &step.State{WantIn: true, WantOver: true, SkipDepth: 4, StackDepthAtCall: 2}
	s.Reset()
	require.Equal(t, step.State{}, *s)
}

func TestCountFrames(t *testing.T) {
	n := step.CountFrames(func(level int) bool { return level < 4 })
	require.EqualValues(t, 4, n)
}
