package simvm

import (
	"unsafe"

	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

// Function is a compiled function a Machine can call: a prototype plus the
// source name its InternedString carries.
type Function struct {
	proto *Prototype
}

// Machine owns one synthetic target VM: a State plus every closure,
// prototype and string it has allocated. All allocations are kept alive in
// Machine's own slices for as long as the Machine exists, so the uintptr
// addresses handed out through VMState/Reader stay valid the way a real
// attached process's memory would.
type Machine struct {
	state *State

	strings   []*InternedString
	protos    []*Prototype
	closures  []*Closure
	callInfos []*CallInfo

	frames []uintptr // active call-info stack, for StackProbe
}

// New returns an empty Machine with no active frame.
func New() *Machine {
	return &Machine{state: &State{}}
}

func addr(p unsafe.Pointer) uintptr { return uintptr(p) }

// Define compiles a new function named sourceName and returns a handle to
// it. It does not make the function active; call Call to push a frame for
// it.
func (m *Machine) Define(sourceName string) *Function {
	s := &InternedString{}
	s.Len = uint32(len(sourceName))
	copy(s.Content[:], sourceName)
	m.strings = append(m.strings, s)

	p := &Prototype{Source: addr(unsafe.Pointer(s))}
	m.protos = append(m.protos, p)

	return &Function{proto: p}
}

// Call pushes a new scripted activation record for fn and makes it the
// active frame.
func (m *Machine) Call(fn *Function) {
	c := &Closure{Proto: addr(unsafe.Pointer(fn.proto))}
	m.closures = append(m.closures, c)

	ci := &CallInfo{Func: Value{Tag: vmdesc.ScriptedClosureTag, Payload: addr(unsafe.Pointer(c))}}
	m.callInfos = append(m.callInfos, ci)

	ciAddr := addr(unsafe.Pointer(ci))
	m.frames = append(m.frames, ciAddr)
	m.state.CallInfo = ciAddr
}

// CallNative pushes an activation record for a native (non-scripted)
// function — one whose frame has no prototype.
func (m *Machine) CallNative() {
	ci := &CallInfo{Func: Value{Tag: nativeTag}}
	m.callInfos = append(m.callInfos, ci)

	ciAddr := addr(unsafe.Pointer(ci))
	m.frames = append(m.frames, ciAddr)
	m.state.CallInfo = ciAddr
}

// Return pops the active frame, restoring whichever frame called it (or no
// active frame at all, if this was the outermost call).
func (m *Machine) Return() {
	if len(m.frames) == 0 {
		m.state.CallInfo = 0
		return
	}
	m.frames = m.frames[:len(m.frames)-1]
	if len(m.frames) == 0 {
		m.state.CallInfo = 0
		return
	}
	m.state.CallInfo = m.frames[len(m.frames)-1]
}

// SetLine sets the current line the hook's debug record should report.
func (m *Machine) SetLine(line int32) {
	m.state.CurrentLine = line
}

// Depth reports the current call-stack depth, for wiring a step.StackProbe
// in JIT-reconciliation tests.
func (m *Machine) Depth() uint32 {
	return uint32(len(m.frames))
}

// VMState returns the address the hook's vm_state parameter would carry.
func (m *Machine) VMState() vmmem.Addr {
	return vmmem.Addr(addr(unsafe.Pointer(m.state)))
}

// Reader returns the Reader this Machine's memory should be read with.
// It is always Native: simvm's whole purpose is exercising the unsafe
// pointer-arithmetic path against real memory.
func (m *Machine) Reader() vmmem.Reader {
	return vmmem.Native{}
}

// Descriptor derives a vmdesc.Descriptor from this package's own struct
// layout via unsafe.Offsetof, rather than hand-copying offsets that could
// drift out of sync with the structs above.
func Descriptor() vmdesc.Descriptor {
	var ci CallInfo
	var v Value
	var cl Closure
	var p Prototype
	var s InternedString
	var st State

	// TypeTagOffset and ValueOffset are relative to the func slot itself
	// (CallInfo's address plus FuncSlotOffset), the same convention
	// internal/frame.Decode uses — not relative to CallInfo.
	return vmdesc.Generic(vmdesc.Offsets{
		CallInfoOffset:      unsafe.Offsetof(st.CallInfo),
		FuncSlotOffset:      unsafe.Offsetof(ci.Func),
		TypeTagOffset:       unsafe.Offsetof(v.Tag),
		ValueOffset:         unsafe.Offsetof(v.Payload),
		ClosureProtoOffset:  unsafe.Offsetof(cl.Proto),
		ProtoSourceOffset:   unsafe.Offsetof(p.Source),
		StringContentOffset: unsafe.Offsetof(s.Content),
	})
}
