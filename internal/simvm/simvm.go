// Package simvm is a synthetic target VM used only by tests and by
// cmd/hookctl's harness. It is adapted from the teacher's pkg/vm bytecode
// interpreter (Value/Opcode/VM naming, builtin-call style), reshaped from an
// interface-based Value into real, byte-laid-out structs so the decoding
// path in internal/frame and the unsafe arithmetic in internal/vmmem.Native
// can be exercised against actual process memory instead of a Fake reader.
//
// simvm is not a model of any real target VM's bytecode semantics — it has
// no instruction set, stack, or evaluator. It exists only to put a call-info
// record, a tagged value, a closure, a prototype, and an interned string at
// known offsets in real memory, the way an attached debugger would find
// them in the actual collaborator VM this repo's core is decoupled from.
package simvm

import "unsafe"

// Value is a tagged value: a one-byte type tag (masked to the low six bits
// by internal/vmdesc.TypeTagMask) followed by a pointer-sized payload.
type Value struct {
	Tag     byte
	_       [7]byte // pad to keep Payload pointer-aligned
	Payload uintptr
}

// CallInfo is one activation record. Func holds the tagged value for the
// function currently executing in this frame.
type CallInfo struct {
	Func Value
}

// Closure is a scripted function's closure: the only field the hook engine
// ever follows off of it is its prototype pointer.
type Closure struct {
	Proto uintptr // *Prototype
}

// Prototype is a compiled function body's static description. Source
// points at the interned string naming the file it came from.
type Prototype struct {
	Source uintptr // *InternedString
}

// InternedString is a length-prefixed string with its byte payload stored
// inline, the way the source material keeps its string table.
type InternedString struct {
	Len     uint32
	_       [4]byte
	Content [256]byte
}

// State is the VM state pointer every hook entry point receives. CallInfo
// is nil when there is no active frame (spec.md §4.1: "a null pointer means
// there is no active frame").
type State struct {
	CallInfo    uintptr // *CallInfo
	CurrentLine int32
}

// nativeTag is any type tag other than vmdesc.ScriptedClosureTag; simvm
// uses 1 ("native function") to mark a frame whose active function has no
// prototype.
const nativeTag = 1
