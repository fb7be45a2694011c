package vmdesc

// Per-version layout constants.
//
// The source material this was reverse-engineered from duplicated each of
// these as a ~300-line struct definition per VM major version (spec.md §9,
// "Per-version duplicated layout structs"). Three released dialects plus
// one JIT dialect collapse into these four immutable values; decoding logic
// is shared (internal/frame) and parametric over whichever Descriptor the
// hook entry point for that dialect was compiled against.

var descriptorV1 = Descriptor{
	Dialect:             DialectV1,
	CallInfoOffset:      0x08,
	FuncSlotOffset:      0x10,
	TypeTagOffset:       0x00,
	ValueOffset:         0x08,
	TypeTagValue:        ScriptedClosureTag,
	ClosureProtoOffset:  0x18,
	ProtoSourceOffset:   0x20,
	StringContentOffset: 0x10,
}

var descriptorV2 = Descriptor{
	Dialect:             DialectV2,
	CallInfoOffset:      0x10,
	FuncSlotOffset:      0x18,
	TypeTagOffset:       0x00,
	ValueOffset:         0x08,
	TypeTagValue:        ScriptedClosureTag,
	ClosureProtoOffset:  0x20,
	ProtoSourceOffset:   0x28,
	StringContentOffset: 0x18,
}

var descriptorV3 = Descriptor{
	Dialect:             DialectV3,
	CallInfoOffset:      0x10,
	FuncSlotOffset:      0x20,
	TypeTagOffset:       0x00,
	ValueOffset:         0x08,
	TypeTagValue:        ScriptedClosureTag,
	ClosureProtoOffset:  0x28,
	ProtoSourceOffset:   0x30,
	StringContentOffset: 0x18,
}

// descriptorJIT is the dialect whose debug record needs an explicit
// info-retrieval call (NeedsInfoCall) and whose step controller needs the
// stack-probe reconciliation path (internal/step) because RET events do not
// fire reliably across JIT-compiled frames.
var descriptorJIT = Descriptor{
	Dialect:             DialectJIT,
	CallInfoOffset:      0x10,
	FuncSlotOffset:      0x18,
	TypeTagOffset:       0x00,
	ValueOffset:         0x08,
	TypeTagValue:        ScriptedClosureTag,
	ClosureProtoOffset:  0x20,
	ProtoSourceOffset:   0x28,
	StringContentOffset: 0x18,
	NeedsInfoCall:       true,
}
