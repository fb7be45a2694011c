package asyncbreak

import (
	"context"
	"time"

	"github.com/vmdbg/hookengine/internal/decodeerr"
	"github.com/vmdbg/hookengine/internal/hooklog"
)

// DefaultPollInterval matches spec.md §4.4: "It sleeps ~100 ms between
// iterations."
const DefaultPollInterval = 100 * time.Millisecond

// Accessor is the mailbox as seen through whatever memory actually backs
// it. In the injected shared library (cmd/hookshim) this is the cgo
// globals exported to the debugger; in tests and cmd/hookctl it is a
// small in-process struct holding the code word and data buffer. Keeping this as an interface is what lets
// internal/asyncbreak's polling and servicing logic be unit-tested without
// cgo.
type Accessor interface {
	LoadCode() uint32
	StoreCode(code uint32)
	LoadData() [DataWords]uint64
}

// Installer calls the VM's hook-installation function described by
// spec.md §3 (InstallFunc's signature) at installAddr, once per VM state
// in the request. Only the cgo shim can actually dereference and call a
// raw function pointer; asyncbreak only knows how to decide which calls
// to make and in what order.
type Installer func(installAddr uintptr, vmState uintptr, hookAddr uintptr, mask uint32) error

// SignalFunc fires one of the exported no-op signal functions (spec.md
// §4.5). The worker only ever fires the async-break signal.
type SignalFunc func()

// MetricsSink receives the worker's own activity counts. internal/hookmetrics
// satisfies this without asyncbreak importing prometheus directly.
type MetricsSink interface {
	IncServiceRuns()
	IncInstallErrors()
}

// Worker is the single dedicated async-break thread (spec.md §4.4, §5:
// "The async-break worker runs independently at ~10 Hz").
type Worker struct {
	mailbox      Accessor
	install      Installer
	fireOnAsync  SignalFunc
	pollInterval time.Duration
	log          *hooklog.Logger
	metrics      MetricsSink
}

// SetMetrics attaches a MetricsSink after construction; nil disables it.
func (w *Worker) SetMetrics(sink MetricsSink) {
	w.metrics = sink
}

// New creates a Worker. log may be nil (a nil *hooklog.Logger discards
// everything — see internal/hooklog).
func New(mailbox Accessor, install Installer, fireOnAsync SignalFunc, pollInterval time.Duration, log *hooklog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Worker{
		mailbox:      mailbox,
		install:      install,
		fireOnAsync:  fireOnAsync,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Run polls the mailbox until ctx is cancelled or the debugger writes
// CodeShutdown. It is meant to run in its own goroutine for the lifetime
// of the attach (spec.md §6 lifecycle: "spawn the async worker" on
// attach; "There is no orderly detach").
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.poll() {
				return
			}
		}
	}
}

// poll runs one iteration: read the code, and if there's work, fire the
// async-break signal before servicing it (spec.md §4.4: "Before servicing,
// the worker unconditionally fires the async-break signal function,
// giving the debugger a chance to stop the host on the very first poll
// where work appeared."). Returns true if the worker should stop.
func (w *Worker) poll() bool {
	code := w.mailbox.LoadCode()
	switch code {
	case CodeIdle:
		return false
	case CodeShutdown:
		return true
	}

	if w.fireOnAsync != nil {
		w.fireOnAsync()
	}

	switch code {
	case CodeWake:
		w.mailbox.StoreCode(CodeIdle)
		return false
	case CodeArm:
		w.service(code)
		return false
	case CodeDisarm:
		w.service(code)
		return false
	default:
		// Any other nonzero value is a shutdown request (spec.md §4.4): the
		// worker stops without servicing it or clearing the code.
		return true
	}
}

// service iterates the VM-state list and calls the VM's hook-installation
// function on each (spec.md §4.4). It always clears Code when done, even
// if individual installs failed, so the debugger is never left waiting on
// a partial batch (spec.md §7: "The worker always clears code when done").
func (w *Worker) service(code uint32) {
	defer w.mailbox.StoreCode(CodeIdle)

	if w.metrics != nil {
		w.metrics.IncServiceRuns()
	}

	data := w.mailbox.LoadData()
	req := ParseRequest(&data)

	mask := uint32(HookMask)
	if code == CodeDisarm {
		mask = 0
	}

	if w.install == nil || req.InstallAddr == 0 {
		return
	}

	for _, vmState := range req.VMStates {
		if err := w.install(req.InstallAddr, vmState, req.HookAddr, mask); err != nil {
			// spec.md §7: "the VM's own hook-installation function returns
			// an error, which the worker discards; the next list entry is
			// still attempted."
			if w.metrics != nil {
				w.metrics.IncInstallErrors()
			}
			if w.log != nil {
				w.log.Warn("async-break install failed", "error",
					decodeerr.Wrap(err, "asyncbreak.service").WithAddr("vm_state", vmState))
			}
			continue
		}
	}
}
