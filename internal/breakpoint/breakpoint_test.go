package breakpoint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmdbg/hookengine/internal/breakpoint"
)

func TestMatchByLineAndProto(t *testing.T) {
	var tbl breakpoint.Table
	tbl.Set([]breakpoint.Entry{{Line: 10, Proto: 0xAA}})

	hitID, ok := tbl.Match(10, 0xAA, "unrelated.glyph")
	require.True(t, ok)
	require.Equal(t, 0, hitID)

	_, ok = tbl.Match(10, 0xBB, "")
	require.False(t, ok)
}

func TestMatchBySourceNameOnly(t *testing.T) {
	var tbl breakpoint.Table
	tbl.Set([]breakpoint.Entry{{Line: 42, SourceName: "main.glyph"}})

	hitID, ok := tbl.Match(42, 0, "main.glyph")
	require.True(t, ok)
	require.Equal(t, 0, hitID)

	_, ok = tbl.Match(42, 0, "other.glyph")
	require.False(t, ok)
}

func TestLineZeroNeverMatches(t *testing.T) {
	var tbl breakpoint.Table
	tbl.Set([]breakpoint.Entry{{Line: 0, Proto: 0xAA}, {Line: 0, SourceName: "x.glyph"}})

	_, ok := tbl.Match(0, 0xAA, "x.glyph")
	require.False(t, ok)
}

func TestFirstMatchWins(t *testing.T) {
	var tbl breakpoint.Table
	tbl.Set([]breakpoint.Entry{
		{Line: 5, SourceName: "a.glyph"},
		{Line: 5, SourceName: "a.glyph"},
	})

	hitID, ok := tbl.Match(5, 0, "a.glyph")
	require.True(t, ok)
	require.Equal(t, 0, hitID)
}

func TestCountClampedToCapacity(t *testing.T) {
	var tbl breakpoint.Table
	entries := make([]breakpoint.Entry, breakpoint.MaxEntries+10)
	for i := range entries {
		entries[i] = breakpoint.Entry{Line: i + 1}
	}
	tbl.Set(entries)
	require.Equal(t, breakpoint.MaxEntries, tbl.Count())
}

func TestEntryAccessor(t *testing.T) {
	var tbl breakpoint.Table
	tbl.Set([]breakpoint.Entry{{Line: 7, Proto: 0x1}})
	require.Equal(t, 7, tbl.Entry(0).Line)
	require.Equal(t, breakpoint.Entry{}, tbl.Entry(1))
}

func TestNoEntriesNeverMatch(t *testing.T) {
	var tbl breakpoint.Table
	_, ok := tbl.Match(1, 1, "x")
	require.False(t, ok)
}
