package main

import "C"

import "sync/atomic"

// The six signal functions below are deliberately empty of real work
// (spec.md §4.5, §9: "the contract is their address, not their body").
// Each one still performs a visible atomic store so the compiler can never
// eliminate the call or fold it away, and //export already forces cgo to
// emit a real, non-inlined C function for the debugger to set a native
// breakpoint on.

func onInitialized()   { atomic.AddUint64(&signalCounter, 1) }
func onBreakpointHit() { atomic.AddUint64(&signalCounter, 1) }
func onStepComplete()  { atomic.AddUint64(&signalCounter, 1) }
func onStepOut()       { atomic.AddUint64(&signalCounter, 1) }
func onStepIn()        { atomic.AddUint64(&signalCounter, 1) }
func onAsyncBreak()    { atomic.AddUint64(&signalCounter, 1) }

//export on_initialized
func on_initialized() { onInitialized() }

//export on_breakpoint_hit
func on_breakpoint_hit() { onBreakpointHit() }

//export on_step_complete
func on_step_complete() { onStepComplete() }

//export on_step_out
func on_step_out() { onStepOut() }

//export on_step_in
func on_step_in() { onStepIn() }

//export on_async_break
func on_async_break() { onAsyncBreak() }
