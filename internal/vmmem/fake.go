package vmmem

// Fake is an in-memory Reader backing store for unit tests of
// internal/frame, so the decoder can be exercised without a real VM or
// unsafe pointer arithmetic. Addresses are opaque integer keys chosen by
// the test, not real memory addresses; a zero Addr still behaves as "null"
// the way Native treats it.
type Fake struct {
	words   map[Addr]map[uintptr]Addr
	bytes   map[Addr]map[uintptr]byte
	strings map[Addr]string
}

// NewFake returns an empty Fake store.
func NewFake() *Fake {
	return &Fake{
		words:   make(map[Addr]map[uintptr]Addr),
		bytes:   make(map[Addr]map[uintptr]byte),
		strings: make(map[Addr]string),
	}
}

// PutUintptr records the pointer-sized value found at base+offset.
func (f *Fake) PutUintptr(base Addr, offset uintptr, value Addr) {
	m, ok := f.words[base]
	if !ok {
		m = make(map[uintptr]Addr)
		f.words[base] = m
	}
	m[offset] = value
}

// PutByte records the byte found at base+offset.
func (f *Fake) PutByte(base Addr, offset uintptr, value byte) {
	m, ok := f.bytes[base]
	if !ok {
		m = make(map[uintptr]byte)
		f.bytes[base] = m
	}
	m[offset] = value
}

// PutCString records the null-terminated string found starting at addr.
func (f *Fake) PutCString(addr Addr, s string) {
	f.strings[addr] = s
}

func (f *Fake) Uintptr(base Addr, offset uintptr) Addr {
	if base == 0 {
		return 0
	}
	return f.words[base][offset]
}

func (f *Fake) Byte(base Addr, offset uintptr) byte {
	if base == 0 {
		return 0
	}
	return f.bytes[base][offset]
}

func (f *Fake) CString(addr Addr) string {
	if addr == 0 {
		return ""
	}
	return f.strings[addr]
}
