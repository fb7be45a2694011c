// Command hookctl is a test harness for the hook engine: it drives
// internal/simvm's synthetic target VM through internal/hookengine the same
// way an attached debugger's exported symbols would, without requiring an
// actual VM process or the cgo shim in cmd/hookshim. Styled after the
// teacher's cmd/glyph cobra CLI (subcommands, colorized status lines).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vmdbg/hookengine/internal/asyncbreak"
	"github.com/vmdbg/hookengine/internal/breakpoint"
	"github.com/vmdbg/hookengine/internal/hookconfig"
	"github.com/vmdbg/hookengine/internal/hookengine"
	"github.com/vmdbg/hookengine/internal/hooklog"
	"github.com/vmdbg/hookengine/internal/hookmetrics"
	"github.com/vmdbg/hookengine/internal/hooktrace"
	"github.com/vmdbg/hookengine/internal/simvm"
	"github.com/vmdbg/hookengine/internal/step"
)

var version = "0.1.0"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

func printInfo(msg string)    { infoColor.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { successColor.Printf("[OK] %s\n", msg) }
func printError(err error)    { errorColor.Printf("[ERROR] %s\n", err.Error()) }

func main() {
	rootCmd := &cobra.Command{
		Use:     "hookctl",
		Short:   "Hook-engine test harness",
		Long:    "hookctl drives the hook engine against a synthetic target VM for local development and manual testing.",
		Version: version,
	}

	var demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted call/line/return sequence and report every signal the engine fires",
		RunE:  runDemo,
	}
	demoCmd.Flags().String("source", "main.glyph", "source name the synthetic function reports")
	demoCmd.Flags().Int("breakpoint-line", 0, "arm a breakpoint at this line (0 disables)")
	demoCmd.Flags().Bool("step-over", false, "arm step-over before the sequence runs")
	demoCmd.Flags().Bool("tracing", false, "enable stdout span tracing")

	var descriptorCmd = &cobra.Command{
		Use:   "descriptor <file.yaml>",
		Short: "Load and print a dev-harness descriptor file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDescriptor,
	}

	var watchCmd = &cobra.Command{
		Use:   "watch <file.yaml>",
		Short: "Watch a descriptor file and print every reload until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	var asyncCmd = &cobra.Command{
		Use:   "async-demo",
		Short: "Drive the async-break worker against a fake mailbox and report install calls",
		RunE:  runAsyncDemo,
	}

	rootCmd.AddCommand(demoCmd, descriptorCmd, watchCmd, asyncCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	bpLine, _ := cmd.Flags().GetInt("breakpoint-line")
	stepOver, _ := cmd.Flags().GetBool("step-over")
	tracing, _ := cmd.Flags().GetBool("tracing")

	tracer, err := hooktrace.New(hooktrace.Config{Enabled: tracing, ServiceName: "hookctl-demo"})
	if err != nil {
		return fmt.Errorf("start tracer: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	log := hooklog.New(hooklog.Config{MinLevel: hooklog.Debug})
	defer log.Close()

	metrics := hookmetrics.New(hookmetrics.DefaultConfig())

	m := simvm.New()
	fn := m.Define(source)
	m.Call(fn)

	engine := hookengine.New(m.Reader(), simvm.Descriptor(), nil, nil)
	engine.Log = log
	engine.Metrics = metrics
	if bpLine > 0 {
		engine.Table.Set([]breakpoint.Entry{{Line: bpLine, SourceName: source}})
	}
	engine.Step.WantOver = stepOver

	engine.Signals.OnBreakpointHit = func() { printSuccess(fmt.Sprintf("breakpoint hit: id=%d", engine.Hit.HitID)) }
	engine.Signals.OnStepComplete = func() { printInfo("step complete") }
	engine.Signals.OnStepIn = func() { printInfo("step in") }
	engine.Signals.OnStepOut = func() { printInfo("step out") }

	tr := tracer.Tracer("hookctl")
	_, span := tr.Start(context.Background(), "demo")
	defer span.End()

	lines := []int{10, 11, 12}
	printInfo(fmt.Sprintf("driving %d LINE events against %q", len(lines), source))
	for _, line := range lines {
		m.SetLine(int32(line))
		engine.OnEvent(m.VMState(), hookengine.DebugRecord{Event: step.EventLine, CurrentLine: line})
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	printInfo(fmt.Sprintf("collected %d metric families", len(families)))
	return nil
}

func runDescriptor(cmd *cobra.Command, args []string) error {
	cfg, err := hookconfig.Load(args[0])
	if err != nil {
		return err
	}
	d := cfg.Descriptor()
	printSuccess(fmt.Sprintf("dialect=%s call_info_offset=0x%x poll_interval=%s", d.Dialect, d.CallInfoOffset, cfg.PollInterval))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := hookconfig.NewWatcher(args[0], func(cfg hookconfig.Config, err error) {
		if err != nil {
			printError(err)
			return
		}
		printInfo(fmt.Sprintf("reloaded: dialect=%s metrics_label=%s", cfg.Dialect, cfg.MetricsLabel))
	})
	if err != nil {
		return err
	}
	defer w.Close()

	<-ctx.Done()
	return nil
}

func runAsyncDemo(cmd *cobra.Command, args []string) error {
	log := hooklog.New(hooklog.Config{MinLevel: hooklog.Debug, Format: hooklog.TextFormat})
	defer log.Close()

	mb := &inProcessMailbox{}
	mb.data[0] = 0x1000 // install fn address (not actually dereferenced here)
	mb.data[1] = 0x2000 // hook entry address
	mb.data[2] = 0xAAAA
	mb.data[3] = 0xBBBB
	mb.code = asyncbreak.CodeArm

	installed := 0
	worker := asyncbreak.New(mb, func(installAddr, vmState, hookAddr uintptr, mask uint32) error {
		installed++
		printInfo(fmt.Sprintf("install vm_state=0x%x mask=%d", vmState, mask))
		return nil
	}, func() { printInfo("async-break signal fired") }, 50*time.Millisecond, log)
	worker.SetMetrics(hookmetrics.New(hookmetrics.DefaultConfig()))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	printSuccess(fmt.Sprintf("serviced %d installs", installed))
	return nil
}

type inProcessMailbox struct {
	code uint32
	data [asyncbreak.DataWords]uint64
}

func (m *inProcessMailbox) LoadCode() uint32                       { return m.code }
func (m *inProcessMailbox) StoreCode(code uint32)                  { m.code = code }
func (m *inProcessMailbox) LoadData() [asyncbreak.DataWords]uint64 { return m.data }
