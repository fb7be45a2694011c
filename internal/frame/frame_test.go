package frame_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmdbg/hookengine/internal/frame"
	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

func testDescriptor() vmdesc.Descriptor {
	d, ok := vmdesc.Lookup(vmdesc.DialectV1)
	if !ok {
		panic("descriptor v1 not registered")
	}
	return d
}

const (
	vmState  vmmem.Addr = 0x1000
	callInfo vmmem.Addr = 0x2000
	closure  vmmem.Addr = 0x3000
	proto    vmmem.Addr = 0x4000
	source   vmmem.Addr = 0x5000
)

func wireHappyPath(mem *vmmem.Fake, d vmdesc.Descriptor) {
	mem.PutUintptr(vmState, d.CallInfoOffset, callInfo)
	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	mem.PutByte(funcSlot, d.TypeTagOffset, d.TypeTagValue)
	mem.PutUintptr(funcSlot, d.ValueOffset, closure)
	mem.PutUintptr(closure, d.ClosureProtoOffset, proto)
	mem.PutUintptr(proto, d.ProtoSourceOffset, source)
	mem.PutCString(source+vmmem.Addr(d.StringContentOffset), "main.glyph")
}

func TestDecodeScriptedFrame(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()
	wireHappyPath(mem, d)

	fr := frame.Decode(mem, d, vmState)
	require.True(t, fr.Ok)
	require.Equal(t, proto, fr.Proto)
	require.Equal(t, "main.glyph", fr.SourceName)
}

func TestDecodeNullCallInfo(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()

	fr := frame.Decode(mem, d, vmState)
	require.False(t, fr.Ok)
	require.Zero(t, fr.Proto)
	require.Empty(t, fr.SourceName)
}

func TestDecodeNativeFrame(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()
	mem.PutUintptr(vmState, d.CallInfoOffset, callInfo)
	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	// Type tag does not match the scripted-closure tag: native frame.
	mem.PutByte(funcSlot, d.TypeTagOffset, 0x01)

	fr := frame.Decode(mem, d, vmState)
	require.False(t, fr.Ok)
}

func TestDecodeMasksTypeTagToLowSixBits(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()
	wireHappyPath(mem, d)

	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	// High bits set beyond the low six: still matches the scripted tag
	// after masking with vmdesc.TypeTagMask.
	mem.PutByte(funcSlot, d.TypeTagOffset, d.TypeTagValue|0xC0)

	fr := frame.Decode(mem, d, vmState)
	require.True(t, fr.Ok)
}

func TestDecodeNullClosure(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()
	mem.PutUintptr(vmState, d.CallInfoOffset, callInfo)
	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	mem.PutByte(funcSlot, d.TypeTagOffset, d.TypeTagValue)
	// ValueOffset left unset -> zero closure pointer.

	fr := frame.Decode(mem, d, vmState)
	require.False(t, fr.Ok)
}

func TestDecodeNullSourcePointerYieldsEmptyName(t *testing.T) {
	d := testDescriptor()
	mem := vmmem.NewFake()
	mem.PutUintptr(vmState, d.CallInfoOffset, callInfo)
	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	mem.PutByte(funcSlot, d.TypeTagOffset, d.TypeTagValue)
	mem.PutUintptr(funcSlot, d.ValueOffset, closure)
	mem.PutUintptr(closure, d.ClosureProtoOffset, proto)
	// ProtoSourceOffset left unset -> zero source pointer.

	fr := frame.Decode(mem, d, vmState)
	require.True(t, fr.Ok)
	require.Equal(t, proto, fr.Proto)
	require.Empty(t, fr.SourceName)
}

func TestDecodeGenericDescriptor(t *testing.T) {
	offsets := vmdesc.Offsets{
		CallInfoOffset:      0x08,
		FuncSlotOffset:      0x10,
		TypeTagOffset:       0,
		ValueOffset:         8,
		ClosureProtoOffset:  0x18,
		ProtoSourceOffset:   0x20,
		StringContentOffset: 0x10,
	}
	d := vmdesc.Generic(offsets)
	require.Equal(t, vmdesc.ScriptedClosureTag, int(d.TypeTagValue))

	mem := vmmem.NewFake()
	mem.PutUintptr(vmState, d.CallInfoOffset, callInfo)
	funcSlot := callInfo + vmmem.Addr(d.FuncSlotOffset)
	mem.PutByte(funcSlot, d.TypeTagOffset, d.TypeTagValue)
	mem.PutUintptr(funcSlot, d.ValueOffset, closure)
	mem.PutUintptr(closure, d.ClosureProtoOffset, proto)
	mem.PutUintptr(proto, d.ProtoSourceOffset, source)
	mem.PutCString(source+vmmem.Addr(d.StringContentOffset), "generic.glyph")

	fr := frame.Decode(mem, d, vmState)
	require.True(t, fr.Ok)
	require.Equal(t, "generic.glyph", fr.SourceName)
}
