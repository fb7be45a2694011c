package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/vmdbg/hookengine/internal/hookengine"
	"github.com/vmdbg/hookengine/internal/step"
	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

func eventFromC(kind C.uint32_t) step.Event {
	switch kind {
	case 0:
		return step.EventCall
	case 1:
		return step.EventRet
	case 2:
		return step.EventLine
	case 3:
		return step.EventCount
	case 4:
		return step.EventTailCall
	case 5:
		return step.EventTailRet
	default:
		return step.EventCount
	}
}

func dispatch(e *hookengine.Engine, vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	readStepFlags()
	syncBreakpointTable()

	dr := (*C.debug_record)(debugRecord)
	rec := hookengine.DebugRecord{
		Event:       eventFromC(dr.event),
		CurrentLine: int(dr.current_line),
	}

	e.StackProbe = makeStackProbe()
	if e.Descriptor.NeedsInfoCall {
		e.InfoCall = makeInfoRetrieval()
	}

	e.OnEvent(vmmem.Addr(uintptr(vmState)), rec)

	writeStepFlags()
	writeHitRecord(e.Hit)
}

func makeStackProbe() step.StackProbe {
	addr := uintptr(C.jit_get_stack_address)
	if addr == 0 {
		return nil
	}
	return func() uint32 {
		return step.CountFrames(func(level int) bool {
			return C.call_stack_probe(C.uintptr_t(addr), C.int(level)) != 0
		})
	}
}

func makeInfoRetrieval() hookengine.InfoRetrieval {
	addr := uintptr(C.jit_get_info_address)
	return func(vmState vmmem.Addr, rec *hookengine.DebugRecord) bool {
		if addr == 0 {
			return false
		}
		var line C.int32_t
		ok := C.call_info_retrieve(C.uintptr_t(addr), C.uintptr_t(vmState), &line)
		if ok == 0 {
			return false
		}
		rec.CurrentLine = int(line)
		return true
	}
}

//export HookV1
func HookV1(vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	dispatch(engineFor(vmdesc.DialectV1), vmState, debugRecord)
}

//export HookV2
func HookV2(vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	dispatch(engineFor(vmdesc.DialectV2), vmState, debugRecord)
}

//export HookV3
func HookV3(vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	dispatch(engineFor(vmdesc.DialectV3), vmState, debugRecord)
}

//export HookJIT
func HookJIT(vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	dispatch(engineFor(vmdesc.DialectJIT), vmState, debugRecord)
}

//export HookGeneric
func HookGeneric(vmState unsafe.Pointer, debugRecord unsafe.Pointer) {
	dispatch(genericEngine(), vmState, debugRecord)
}
