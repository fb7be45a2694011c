// Package frame decodes the currently executing prototype and source name
// out of an opaque VM state pointer, per spec.md §4.1 step 1 and §4.2
// "Component design, Frame decoder" (spec.md §2 item 2).
package frame

import (
	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

// Frame is the result of decoding the active call frame: the prototype
// address the VM is currently executing and the source name it carries.
// Ok is false when the active frame is native (has no prototype) — spec.md
// §4.1: "the current frame is native and has no prototype."
type Frame struct {
	Proto      vmmem.Addr
	SourceName string
	Ok         bool
}

// Decode walks vmState using d's offsets and mem's reads to produce a
// Frame, following spec.md §4.1 step 1 exactly:
//
//  1. Dereference the VM state's call-info pointer; a null pointer means
//     there is no active frame to decode.
//  2. Read the tagged-value type tag at the function slot, masked to the
//     low six bits; anything but the scripted-closure tag means the active
//     frame is native.
//  3. Follow the closure pointer through its prototype field.
//  4. Read the source name by treating the interned-string header size as
//     an offset past the string pointer to reach its payload.
func Decode(mem vmmem.Reader, d vmdesc.Descriptor, vmState vmmem.Addr) Frame {
	callInfo := mem.Uintptr(vmState, d.CallInfoOffset)
	if callInfo == 0 {
		return Frame{}
	}

	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	tag := mem.Byte(funcSlot, d.TypeTagOffset) & vmdesc.TypeTagMask
	if tag != d.TypeTagValue {
		return Frame{}
	}

	closure := mem.Uintptr(funcSlot, d.ValueOffset)
	if closure == 0 {
		return Frame{}
	}

	proto := mem.Uintptr(closure, d.ClosureProtoOffset)
	if proto == 0 {
		return Frame{}
	}

	sourcePtr := mem.Uintptr(proto, d.ProtoSourceOffset)
	var sourceName string
	if sourcePtr != 0 {
		sourceName = mem.CString(sourcePtr + vmmem.Addr(d.StringContentOffset))
	}

	return Frame{Proto: proto, SourceName: sourceName, Ok: true}
}
