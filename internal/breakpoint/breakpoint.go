// Package breakpoint implements the armed-breakpoint catalogue and matcher
// described in spec.md §3 ("Breakpoint entry", "Breakpoint table") and §4.2
// ("Breakpoint matcher"). It is adapted from the teacher's pkg/debug
// breakpoint bookkeeping (add/remove/list, hit counting), reshaped around
// the spec's fixed-capacity, array-backed table with first-match-wins
// semantics instead of a map keyed by debugger-chosen id.
package breakpoint

// MaxEntries is the hard capacity of the table (spec.md §3 invariant:
// "breakpoint_count ≤ 256").
const MaxEntries = 256

// MaxSourceNameLen is the capacity of a single source-name slot (spec.md
// §6: "breakpoint_sources (128 × 256 bytes)"); names are stored with a
// trailing NUL, so usable content is one byte shorter.
const MaxSourceNameLen = 128

// Entry is one armed breakpoint (spec.md §3 "Breakpoint entry").
//
// Matches an event iff Line equals the event's line AND either Proto is
// nonzero and equals the event's prototype address, or Proto is zero and
// SourceName equals the event's source name byte-for-byte.
type Entry struct {
	Line       int
	Proto      uintptr
	SourceName string
}

func (e Entry) matches(line int, proto uintptr, sourceName string) bool {
	if e.Line == 0 || e.Line != line {
		return false
	}
	if e.Proto != 0 {
		return e.Proto == proto
	}
	return e.SourceName == sourceName
}

// Table is the bounded, ordered catalogue of armed breakpoints. The
// debugger is the sole writer (spec.md §5: "breakpoint table + count
// (debugger writes, hook reads)"); Table exposes Set/Count purely so
// internal/hookengine and cmd/hookctl can populate it in-process (for the
// cgo shim, the debugger instead writes the exported C arrays directly —
// see cmd/hookshim).
type Table struct {
	entries [MaxEntries]Entry
	count   int
}

// Count returns the number of entries currently in effect. Entries at
// index >= Count are ignored even if populated (spec.md §3: "Entries
// beyond the declared count are ignored.").
func (t *Table) Count() int {
	n := t.count
	if n > MaxEntries {
		n = MaxEntries
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Set replaces the table's contents. Entries are written before Count is
// updated, mirroring the atomicity contract in spec.md §3: "The debugger
// writes the whole table atomically by updating entries first and the
// count last."
func (t *Table) Set(entries []Entry) {
	n := len(entries)
	if n > MaxEntries {
		n = MaxEntries
	}
	for i := 0; i < n; i++ {
		t.entries[i] = entries[i]
	}
	t.count = n
}

// Entry returns the entry at index i without bounds-checking against
// Count, for callers (tests, cmd/hookctl) that want to inspect slots past
// the declared count.
func (t *Table) Entry(i int) Entry {
	return t.entries[i]
}

// Match implements spec.md §4.2: a linear scan of the first Count entries,
// first match wins. proto should be 0 and sourceName "" when the active
// frame is native (spec.md §4.1 step 3: "when the frame is native, use
// (current_line, 0, \"\") — matching only source-only breakpoints").
//
// Line 0 never matches (spec.md §4.2 edge cases).
func (t *Table) Match(line int, proto uintptr, sourceName string) (hitID int, ok bool) {
	if line == 0 {
		return 0, false
	}
	n := t.Count()
	for i := 0; i < n; i++ {
		if t.entries[i].matches(line, proto, sourceName) {
			return i, true
		}
	}
	return 0, false
}
