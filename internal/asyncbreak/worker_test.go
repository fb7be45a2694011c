package asyncbreak_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmdbg/hookengine/internal/asyncbreak"
)

type fakeMailbox struct {
	mu   sync.Mutex
	code uint32
	data [asyncbreak.DataWords]uint64
}

func (f *fakeMailbox) LoadCode() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

func (f *fakeMailbox) StoreCode(code uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = code
}

func (f *fakeMailbox) LoadData() [asyncbreak.DataWords]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func (f *fakeMailbox) setRequest(install, hook uint64, vmStates ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[0] = install
	f.data[1] = hook
	for i, v := range vmStates {
		f.data[2+i] = v
	}
}

func TestParseRequest(t *testing.T) {
	var data [asyncbreak.DataWords]uint64
	data[0] = 0x1000
	data[1] = 0x2000
	data[2] = 0xAA
	data[3] = 0xBB
	data[4] = 0 // terminator

	req := asyncbreak.ParseRequest(&data)
	require.EqualValues(t, 0x1000, req.InstallAddr)
	require.EqualValues(t, 0x2000, req.HookAddr)
	require.Equal(t, []uintptr{0xAA, 0xBB}, req.VMStates)
}

func TestWorkerIdleNeverFiresSignalOrInstall(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeIdle}
	fired := false
	installed := 0
	w := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, mask uint32) error {
		installed++
		return nil
	}, func() { fired = true }, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	require.False(t, fired)
	require.Zero(t, installed)
}

func TestWorkerArmFiresSignalThenInstallsAndClearsCode(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeArm}
	mb.setRequest(0x1000, 0x2000, 0xAA, 0xBB)

	var fireOrder []string
	var mu sync.Mutex
	installedMasks := []uint32{}

	w := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, mask uint32) error {
		mu.Lock()
		defer mu.Unlock()
		installedMasks = append(installedMasks, mask)
		fireOrder = append(fireOrder, "install")
		return nil
	}, func() {
		mu.Lock()
		defer mu.Unlock()
		fireOrder = append(fireOrder, "signal")
	}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go w.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(installedMasks) == 2
	}, 200*time.Millisecond, 5*time.Millisecond)

	require.Equal(t, asyncbreak.CodeIdle, mb.LoadCode())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "signal", fireOrder[0])
	for _, m := range installedMasks {
		require.EqualValues(t, asyncbreak.HookMask, m)
	}
}

func TestWorkerDisarmUsesZeroMask(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeDisarm}
	mb.setRequest(0x1000, 0x2000, 0xAA)

	var mask uint32 = 99
	w := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, m uint32) error {
		mask = m
		return nil
	}, func() {}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	require.EqualValues(t, 0, mask)
}

func TestWorkerInstallErrorsAreSkippedNotFatal(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeArm}
	mb.setRequest(0x1000, 0x2000, 0xAA, 0xBB, 0xCC)

	calls := 0
	w := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, m uint32) error {
		calls++
		if vmState == 0xBB {
			return errTest
		}
		return nil
	}, func() {}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	require.Equal(t, 3, calls)
	require.Equal(t, asyncbreak.CodeIdle, mb.LoadCode())
}

func TestWorkerShutdownCodeStopsRun(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeShutdown}
	w := asyncbreak.New(mb, nil, nil, 5*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("worker did not stop on shutdown code")
	}
}

var errTest = testErr("install failed")

type testErr string

func (e testErr) Error() string { return string(e) }

type fakeMetrics struct {
	mu       sync.Mutex
	runs     int
	installs int
}

func (f *fakeMetrics) IncServiceRuns()   { f.mu.Lock(); f.runs++; f.mu.Unlock() }
func (f *fakeMetrics) IncInstallErrors() { f.mu.Lock(); f.installs++; f.mu.Unlock() }

func TestWorkerReportsServiceAndInstallErrorsToMetrics(t *testing.T) {
	mb := &fakeMailbox{code: asyncbreak.CodeArm}
	mb.setRequest(0x1000, 0x2000, 0xAA, 0xBB)

	w := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, mask uint32) error {
		if vmState == 0xBB {
			return errTest
		}
		return nil
	}, func() {}, 5*time.Millisecond, nil)

	metrics := &fakeMetrics{}
	w.SetMetrics(metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	require.Equal(t, 1, metrics.runs)
	require.Equal(t, 1, metrics.installs)
}
