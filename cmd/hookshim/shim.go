// Command hookshim is the actual injected payload: built with
// -buildmode=c-shared, it exposes the fixed-address exported symbols and
// no-op signal functions spec.md §6 describes, and wires them to
// internal/hookengine, internal/breakpoint, internal/step and
// internal/asyncbreak. Every concern the core packages model in pure Go
// meets the C ABI only in this package.
package main

/*
#include <stdint.h>
#include <string.h>

// State flags (spec.md §6 "State flags"), written by the debugger and read
// by this library.
unsigned char initialized;
unsigned char step_in;
unsigned char step_over;
unsigned char step_out;
unsigned int  skip_depth;
unsigned int  stack_depth_at_call;
unsigned int  async_break_code;

// Breakpoint table (spec.md §6 "Buffers").
typedef struct {
	uintptr_t line;
	uintptr_t proto;
	uintptr_t source_name; // pointer into breakpoint_sources
} bp_entry;

unsigned int breakpoint_count;
bp_entry     breakpoint_table[256];
char         breakpoint_sources[256][128];

// Async-break mailbox (spec.md §3 "Async-break mailbox").
uint64_t async_break_data[1024];

// Populated at attach with the process's current directory (spec.md §9:
// "retained for binary compatibility with the debugger").
char working_directory[1024];

// Hit record (spec.md §3 "Hit record").
unsigned int hit_id;
uintptr_t    hit_vm_state;

// JIT-dialect callback addresses (spec.md §6: "the debugger must also
// populate jit_get_info_address and jit_get_stack_address").
uintptr_t jit_get_info_address;
uintptr_t jit_get_stack_address;

// Generic-dialect offsets (spec.md §6 "Generic-dialect offsets"), in the
// order: event, current_line, call_info, func_slot, type_tag, value,
// closure_proto, proto_source, string_content.
uintptr_t generic_offsets[10];

// debug_record is the minimal per-event structure the VM populates before
// calling a hook entry point (GLOSSARY: "carrying at minimum the event
// kind and current line").
typedef struct {
	uint32_t event;
	int32_t  current_line;
} debug_record;

typedef int (*install_fn)(uintptr_t vm_state, uintptr_t hook, unsigned int mask, unsigned int count);
typedef int (*info_retrieve_fn)(uintptr_t vm_state, int32_t *out_line);
typedef int (*stack_probe_fn)(int level);

static int call_install(uintptr_t fn, uintptr_t vm_state, uintptr_t hook, unsigned int mask, unsigned int count) {
	return ((install_fn)fn)(vm_state, hook, mask, count);
}

static int call_info_retrieve(uintptr_t fn, uintptr_t vm_state, int32_t *out_line) {
	return ((info_retrieve_fn)fn)(vm_state, out_line);
}

static int call_stack_probe(uintptr_t fn, int level) {
	return ((stack_probe_fn)fn)(level);
}
*/
import "C"

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/vmdbg/hookengine/internal/asyncbreak"
	"github.com/vmdbg/hookengine/internal/breakpoint"
	"github.com/vmdbg/hookengine/internal/hookengine"
	"github.com/vmdbg/hookengine/internal/hooklog"
	"github.com/vmdbg/hookengine/internal/hookmetrics"
	"github.com/vmdbg/hookengine/internal/step"
	"github.com/vmdbg/hookengine/internal/vmdesc"
	"github.com/vmdbg/hookengine/internal/vmmem"
)

// engines holds one hookengine.Engine per compiled-in dialect, all sharing
// the single breakpoint table and step state the exported C globals back.
// The generic engine's descriptor is rebuilt on every call instead of
// cached (spec.md §6: "not cached").
var (
	table     = &breakpoint.Table{}
	stepState = &step.State{}
	log       = hooklog.New(hooklog.Config{MinLevel: hooklog.Warn})
	metrics   = hookmetrics.New(hookmetrics.DefaultConfig())

	enginesMu sync.Mutex
	engines   = map[vmdesc.Dialect]*hookengine.Engine{}

	signalCounter uint64 // forces a visible store in every signal function
)

func engineFor(dialect vmdesc.Dialect) *hookengine.Engine {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if e, ok := engines[dialect]; ok {
		return e
	}
	d, _ := vmdesc.Lookup(dialect)
	e := hookengine.New(vmmem.Native{}, d, table, stepState)
	e.Log = log
	e.Metrics = metrics
	wireSignals(e)
	engines[dialect] = e
	return e
}

func genericEngine() *hookengine.Engine {
	offsets := vmdesc.Offsets{
		EventOffset:         uintptr(C.generic_offsets[0]),
		CurrentLineOffset:   uintptr(C.generic_offsets[1]),
		CallInfoOffset:      uintptr(C.generic_offsets[2]),
		FuncSlotOffset:      uintptr(C.generic_offsets[3]),
		TypeTagOffset:       uintptr(C.generic_offsets[4]),
		ValueOffset:         uintptr(C.generic_offsets[5]),
		ClosureProtoOffset:  uintptr(C.generic_offsets[6]),
		ProtoSourceOffset:   uintptr(C.generic_offsets[7]),
		StringContentOffset: uintptr(C.generic_offsets[8]),
	}
	e := hookengine.New(vmmem.Native{}, vmdesc.Generic(offsets), table, stepState)
	e.Log = log
	e.Metrics = metrics
	wireSignals(e)
	return e
}

func wireSignals(e *hookengine.Engine) {
	e.Signals = hookengine.Signals{
		OnBreakpointHit: func() { onBreakpointHit() },
		OnStepComplete:  func() { onStepComplete() },
		OnStepOut:       func() { onStepOut() },
		OnStepIn:        func() { onStepIn() },
	}
}

func readStepFlags() {
	stepState.WantIn = C.step_in != 0
	stepState.WantOver = C.step_over != 0
	stepState.WantOut = C.step_out != 0
	stepState.SkipDepth = uint32(C.skip_depth)
	stepState.StackDepthAtCall = uint32(C.stack_depth_at_call)
}

func writeStepFlags() {
	C.skip_depth = C.uint(stepState.SkipDepth)
	C.stack_depth_at_call = C.uint(stepState.StackDepthAtCall)
}

func writeHitRecord(rec hookengine.HitRecord) {
	C.hit_id = C.uint(rec.HitID)
	C.hit_vm_state = C.uintptr_t(rec.HitVMState)
}

func syncBreakpointTable() {
	count := int(C.breakpoint_count)
	if count > breakpoint.MaxEntries {
		count = breakpoint.MaxEntries
	}
	entries := make([]breakpoint.Entry, count)
	for i := 0; i < count; i++ {
		var src string
		if ptr := uintptr(C.breakpoint_table[i].source_name); ptr != 0 {
			src = C.GoString((*C.char)(unsafe.Pointer(ptr)))
		}
		entries[i] = breakpoint.Entry{
			Line:       int(C.breakpoint_table[i].line),
			Proto:      uintptr(C.breakpoint_table[i].proto),
			SourceName: src,
		}
	}
	table.Set(entries)
	metrics.BreakpointCount.Set(float64(count))
}

func main() {}

func init() {
	if wd, err := os.Getwd(); err == nil {
		buf := workingDirectoryBuf()
		n := copy(buf[:len(buf)-1], wd)
		buf[n] = 0
	}

	asyncWorker.SetMetrics(metrics)
	go asyncWorker.Run(context.Background())

	C.initialized = 1
	atomic.AddUint64(&signalCounter, 1)
	onInitialized()
}

func workingDirectoryBuf() []byte {
	return (*[1024]byte)(unsafe.Pointer(&C.working_directory[0]))[:]
}
