package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/spiflash"
	"github.com/sarchlab/spiflash/agent"
	"github.com/sarchlab/spiflash/analysis"
	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/datarecording"
	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/monitoring"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/timing"
	"github.com/sarchlab/spiflash/tracing"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the bridge with a traffic agent and print statistics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd)
		},
	}

	f := runCmd.Flags()
	f.String("pattern", "sequential", "access pattern: sequential, strided or random")
	f.Int("reads", 1000, "number of reads issued by the agent")
	f.Uint64("access-size", 4, "bytes per read")
	f.Uint64("stride", 64, "address increment of the strided pattern")
	f.Uint64("start", 0, "first address")
	f.Int("inflight", 1, "reads the agent keeps outstanding")
	f.Int64("seed", 1, "seed of the random pattern")
	f.String("trace-db", "", "record every request task to this SQLite file")
	f.String("perf-db", "", "record port traffic and FIFO levels to this SQLite file")
	f.Uint64("perf-period", 1000, "cycles per performance record")
	f.Bool("log-bursts", false, "log burst starts, closes and bus errors to stderr")
	f.Bool("log-events", false, "log every engine event to stderr")
	f.Bool("monitor", false, "serve the monitoring page while running")
	f.Int("monitor-port", 0, "port of the monitoring server, random if 0")
	f.Bool("open-monitor", false, "open the monitoring page in a browser")

	return runCmd
}

type runResult struct {
	bridge      *spiflash.Comp
	agent       *agent.Agent
	bursts      *tracing.StepCountTracer
	latency     *tracing.AverageTimeTracer
	freq        timing.FreqInHz
	endOfTraces timing.VTimeInCycle
}

func runSimulation(cmd *cobra.Command) error {
	spec, img, err := specFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	f := cmd.Flags()
	patternName, _ := f.GetString("pattern")

	pattern, err := agent.ParsePattern(patternName)
	if err != nil {
		return err
	}

	reads, _ := f.GetInt("reads")
	accessSize, _ := f.GetUint64("access-size")
	stride, _ := f.GetUint64("stride")
	start, _ := f.GetUint64("start")
	inflight, _ := f.GetInt("inflight")
	seed, _ := f.GetInt64("seed")

	engine := timing.NewSerialEngine()

	bridge := spiflash.MakeBuilder().
		WithEngine(engine).
		WithSpec(spec).
		WithImage(img).
		Build("Flash")

	traffic := agent.MakeBuilder().
		WithEngine(engine).
		WithFreq(spec.Freq).
		WithPattern(pattern).
		WithAccessSize(accessSize).
		WithStride(stride).
		WithStartAddress(start).
		WithMaxInflight(inflight).
		WithReadLeft(reads).
		WithSeed(seed).
		WithGolden(img).
		WithLowModule(bridge.IO.Top).
		Build("Agent")

	conn := comm.NewDirectConnection("Conn")
	conn.PlugIn(traffic.GetPortByName("Mem"))
	conn.PlugIn(bridge.IO.Top)

	res := runResult{
		bridge:  bridge,
		agent:   traffic,
		bursts:  tracing.NewStepCountTracer(tracing.KindIs("req_in")),
		latency: tracing.NewAverageTimeTracer(engine, tracing.KindIs("req_out")),
		freq:    spec.Freq,
	}
	tracing.CollectTrace(bridge, res.bursts)
	tracing.CollectTrace(traffic, res.latency)

	if path, _ := f.GetString("trace-db"); path != "" {
		tracing.CollectTrace(bridge,
			tracing.NewDBTracer(engine, datarecording.New(path)))
	}

	attachLoggers(cmd, engine, bridge)

	perf := startPerfAnalyzer(cmd, engine, bridge, traffic)

	if err := startMonitor(cmd, engine, bridge, traffic, reads); err != nil {
		return err
	}

	traffic.TickLater()

	if err := engine.Run(); err != nil {
		return err
	}

	if perf != nil {
		perf.Summarize()
	}

	res.endOfTraces = engine.CurrentTime()

	return res.report(cmd.OutOrStdout())
}

func attachLoggers(
	cmd *cobra.Command,
	engine timing.Engine,
	bridge *spiflash.Comp,
) {
	logger := log.New(cmd.ErrOrStderr(), "", 0)

	if on, _ := cmd.Flags().GetBool("log-bursts"); on {
		bridge.Bridge().Reader().AcceptHook(hooking.NewLogHook(logger,
			mmap.HookPosReadStart,
			mmap.HookPosBurstClosed,
			mmap.HookPosBusError,
		))
	}

	if on, _ := cmd.Flags().GetBool("log-events"); on {
		engine.AcceptHook(timing.NewEventLogger(logger))
	}
}

func startPerfAnalyzer(
	cmd *cobra.Command,
	engine timing.Engine,
	bridge *spiflash.Comp,
	traffic *agent.Agent,
) *analysis.PerfAnalyzer {
	path, _ := cmd.Flags().GetString("perf-db")
	if path == "" {
		return nil
	}

	period, _ := cmd.Flags().GetUint64("perf-period")

	b := analysis.MakePerfAnalyzerBuilder().
		WithTimeTeller(engine).
		WithRecorder(datarecording.New(path))
	if period > 0 {
		b = b.WithPeriod(timing.VTimeInCycle(period))
	}

	perf := b.Build()
	perf.RegisterComponent(bridge)
	perf.RegisterComponent(traffic)

	if m := bridge.Bridge().Master(); m != nil {
		perf.RegisterBuffer(m.TXFIFO())
		perf.RegisterBuffer(m.RXFIFO())
	}

	return perf
}

func startMonitor(
	cmd *cobra.Command,
	engine timing.Engine,
	bridge *spiflash.Comp,
	traffic *agent.Agent,
	reads int,
) error {
	enabled, _ := cmd.Flags().GetBool("monitor")
	open, _ := cmd.Flags().GetBool("open-monitor")

	if !enabled && !open {
		return nil
	}

	port, _ := cmd.Flags().GetInt("monitor-port")

	m := monitoring.NewMonitor().WithPortNumber(port)
	m.RegisterEngine(engine)
	m.RegisterBridge(bridge)
	m.RegisterComponent(traffic)

	bar := m.CreateProgressBar("reads", uint64(reads))
	tracing.CollectTrace(traffic, newProgressTracer(bar))

	url := m.StartServer()

	if open {
		return browser.OpenURL(url)
	}

	return nil
}

// progressTracer moves a progress bar as the agent's requests finish.
type progressTracer struct {
	bar      *monitoring.ProgressBar
	inflight map[string]bool
}

func newProgressTracer(bar *monitoring.ProgressBar) *progressTracer {
	return &progressTracer{bar: bar, inflight: make(map[string]bool)}
}

func (t *progressTracer) StartTask(task tracing.Task) {
	if task.Kind != "req_out" {
		return
	}

	t.inflight[task.ID] = true
	t.bar.IncrementInProgress(1)
}

func (t *progressTracer) StepTask(tracing.Task) {}

func (t *progressTracer) EndTask(task tracing.Task) {
	if !t.inflight[task.ID] {
		return
	}

	delete(t.inflight, task.ID)
	t.bar.MoveInProgressToFinished(1)
}

func (r runResult) report(w io.Writer) error {
	as := r.agent.Stats()
	bs := r.bridge.Bridge().Stats()

	fmt.Fprintf(w, "simulated        %d cycles (%s at %s)\n", r.endOfTraces,
		formatSeconds(r.freq.CyclesToSeconds(r.endOfTraces)), r.freq)
	fmt.Fprintf(w, "bridge cycles    %d\n", bs.Cycles)
	fmt.Fprintf(w, "requests         %d issued, %d completed, %d errors\n",
		as.Issued, as.Completed, as.Errors)
	fmt.Fprintf(w, "bytes read       %d\n", as.BytesRead)
	fmt.Fprintf(w, "word reads       %d\n", bs.Reader.Reads)
	fmt.Fprintf(w, "burst continues  %d (%s)\n",
		r.bursts.GetStepCount(spiflash.StepBurstContinue),
		hitRate(bs.Reader.Continuations, bs.Reader.Reads))
	fmt.Fprintf(w, "burst restarts   %d\n",
		r.bursts.GetStepCount(spiflash.StepBurstNew))
	fmt.Fprintf(w, "bursts closed    %d\n", bs.Reader.BurstsClosed)
	fmt.Fprintf(w, "flash commands   %d\n", bs.FlashCommands)
	fmt.Fprintf(w, "phases           %d (%d serial cycles)\n",
		bs.Phases, bs.XferCycles)
	fmt.Fprintf(w, "avg latency      %.2f cycles\n", r.latency.AverageTime())

	if n := len(as.Mismatches); n > 0 {
		first := as.Mismatches[0]

		return fmt.Errorf("%d reads differ from the image, first at 0x%X: "+
			"want % X, got % X", n, first.Address, first.Want, first.Got)
	}

	return nil
}

func hitRate(hits, total uint64) string {
	if total == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.1f%%", 100*float64(hits)/float64(total))
}

func formatSeconds(s timing.VTimeInSec) string {
	switch {
	case s < 1e-6:
		return fmt.Sprintf("%.1fns", float64(s)*1e9)
	case s < 1e-3:
		return fmt.Sprintf("%.3fus", float64(s)*1e6)
	default:
		return fmt.Sprintf("%.3fms", float64(s)*1e3)
	}
}
