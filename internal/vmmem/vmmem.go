// Package vmmem abstracts reads of opaque foreign memory belonging to the
// target VM. The hook engine never knows the shape of the VM's structures
// beyond what an internal/vmdesc.Descriptor tells it; vmmem is the layer
// that actually walks pointers at those offsets.
//
// Production code reads through Native, which performs real pointer
// arithmetic via unsafe.Pointer against the address the VM handed the
// hook. Tests and internal/simvm exercise the same decoding logic (in
// internal/frame) against a Native reader backed by a real Go struct laid
// out to match a Descriptor, so the arithmetic is exercised end to end
// without needing an attached VM.
package vmmem

import "unsafe"

// Addr is an address in the target VM's address space, as handed to the
// hook by the VM itself. It is never dereferenced by Go's garbage collector
// and must not be allowed to outlive the call that produced it.
type Addr uintptr

// Reader reads fixed-width fields out of foreign memory at a base address
// plus offset. All reads are unchecked — a bad offset reads through bad
// memory exactly as the equivalent C code would, which matches spec.md's
// "input is opaque from the core's perspective" framing; the caller
// (internal/frame) is responsible for only walking pointers obtained from
// the previous read, the same discipline as the original C hook.
type Reader interface {
	// Uintptr reads a pointer-sized value at base+offset.
	Uintptr(base Addr, offset uintptr) Addr
	// Byte reads a single byte at base+offset.
	Byte(base Addr, offset uintptr) byte
	// CString reads a null-terminated string starting at addr.
	CString(addr Addr) string
}

// Native reads directly from process memory via unsafe.Pointer. This is
// the only Reader implementation used by the production hook path; it
// exists to keep the unsafe arithmetic in one small, auditable place
// instead of scattered through the decoder.
type Native struct{}

func (Native) Uintptr(base Addr, offset uintptr) Addr {
	if base == 0 {
		return 0
	}
	p := unsafe.Pointer(uintptr(base) + offset)
	return Addr(*(*uintptr)(p))
}

func (Native) Byte(base Addr, offset uintptr) byte {
	if base == 0 {
		return 0
	}
	p := unsafe.Pointer(uintptr(base) + offset)
	return *(*byte)(p)
}

func (Native) CString(addr Addr) string {
	if addr == 0 {
		return ""
	}
	const maxLen = 1 << 20 // guard against a non-terminated pointer
	p := unsafe.Pointer(uintptr(addr))
	buf := make([]byte, 0, 64)
	for i := 0; i < maxLen; i++ {
		b := *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(i)))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}
