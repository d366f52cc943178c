package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/Carmen-Shannon/oxy-perf/engine"
	"github.com/Carmen-Shannon/oxy-perf/engine/config"
	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/suite"
	"github.com/Carmen-Shannon/oxy-perf/engine/window"
	"github.com/spf13/cobra"
)

type options struct {
	configPath   string
	backend      string
	listAdapters bool
	listCases    bool
	printConfig  bool
	frames       int
	warmup       int
	filter       string
	compareTo    string
	window       bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "perftest [ADAPTER_INDEX]",
		Short: "GPU buffer and texture load microbenchmarks",
		Long: "perftest times every load and sample case on one adapter and prints each case's total, " +
			"average and standard deviation, compared to a reference case.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	flags.StringVar(&opts.backend, "backend", "", "device backend: wgpu or software")
	flags.BoolVar(&opts.listAdapters, "list-adapters", false, "list adapters and exit")
	flags.BoolVar(&opts.listCases, "list-cases", false, "list the selected cases and exit")
	flags.BoolVar(&opts.printConfig, "print-config", false, "print the resolved config as TOML and exit")
	flags.IntVar(&opts.frames, "frames", 0, "benchmark frames")
	flags.IntVar(&opts.warmup, "warmup", 0, "warm-up frames")
	flags.StringVar(&opts.filter, "filter", "", "only run cases whose name contains this substring")
	flags.StringVar(&opts.compareTo, "compare-to", "", "case every ratio is measured against")
	flags.BoolVar(&opts.window, "window", false, "present into a window; closing it stops the run")
	return cmd
}

// resolveConfig loads the config file and applies the flags the user set on top of it.
func resolveConfig(cmd *cobra.Command, opts *options, args []string) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if len(args) > 0 {
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 0 {
			return config.Config{}, fmt.Errorf("adapter index %q is not a non-negative integer", args[0])
		}
		cfg.Device.Adapter = index
	}
	if flags.Changed("backend") {
		cfg.Device.Backend = opts.backend
	}
	if flags.Changed("frames") {
		cfg.Bench.BenchmarkFrames = opts.frames
	}
	if flags.Changed("warmup") {
		cfg.Bench.WarmupFrames = opts.warmup
	}
	if flags.Changed("filter") {
		cfg.Bench.Filter = opts.filter
	}
	if flags.Changed("compare-to") {
		cfg.Bench.CompareTo = opts.compareTo
	}
	if flags.Changed("window") {
		cfg.Window.Enabled = opts.window
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := resolveConfig(cmd, opts, args)
	if err != nil {
		return err
	}
	backend := cfg.BackendType()
	out := cmd.OutOrStdout()

	if opts.printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if opts.listAdapters || (len(args) == 0 && opts.configPath == "" && !opts.listCases) {
		printAdapters(out, device.Adapters(backend))
		if !opts.listAdapters {
			fmt.Fprintf(out, "\nUsage: %s\n", cmd.UseLine())
		}
		return nil
	}

	catalog, err := suite.NewCatalog(cfg.Bench.GroupSize)
	if err != nil {
		return err
	}
	cases := catalog.Select(cfg.Bench.Filter, cfg.Bench.MaxCases)
	if len(cases) == 0 {
		return fmt.Errorf("no case matches %q", cfg.Bench.Filter)
	}
	if len(cases) > cfg.Profiler.Capacity {
		return fmt.Errorf("%d cases do not fit a profiler capacity of %d", len(cases), cfg.Profiler.Capacity)
	}
	if opts.listCases {
		for id, c := range cases {
			fmt.Fprintf(out, "%3d  %-48s  %s\n", id, c.Name, c.Program)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return benchmark(ctx, out, cfg, catalog, cases)
}

func benchmark(ctx context.Context, out io.Writer, cfg config.Config, catalog *suite.Catalog, cases []suite.Case) error {
	deviceOptions := []device.DeviceBuilderOption{
		device.WithAdapter(cfg.Device.Adapter),
		device.WithForceFallbackAdapter(cfg.Device.ForceFallbackAdapter),
		device.WithDescriptorCapacities(cfg.Descriptors.General, cfg.Descriptors.Samplers),
		device.WithProfilerCapacity(uint32(cfg.Profiler.Capacity)),
	}

	var win window.Window
	if cfg.Window.Enabled {
		win = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		defer win.Close()
		deviceOptions = append(deviceOptions, device.WithSurface(win.SurfaceDescriptor(), win.Width(), win.Height()))
	}

	dev := device.NewDevice(cfg.BackendType(), deviceOptions...)
	defer dev.Close()

	report := suite.NewReport(out, suite.DetectHost())
	report.Header(dev.Adapter())

	programs, err := engine.LoadPrograms(ctx, dev, catalog, cases)
	if err != nil {
		return err
	}
	resources, err := suite.NewResources(dev)
	if err != nil {
		return err
	}

	engineOptions := []engine.EngineBuilderOption{
		engine.WithFrames(cfg.Bench.WarmupFrames, cfg.Bench.BenchmarkFrames),
		engine.WithWorkload(cfg.Bench.Threads, cfg.Bench.GroupSize),
		engine.WithCompareTo(cfg.Bench.CompareTo),
		engine.WithReport(report),
		engine.WithProfiling(cfg.Profiler.FrameStats),
	}
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
	}

	_, err = engine.NewEngine(dev, engineOptions...).Run(ctx, cases, programs, resources)
	return err
}

func printAdapters(w io.Writer, adapters []device.AdapterInfo) {
	if len(adapters) == 0 {
		fmt.Fprintln(w, "No adapters found")
		return
	}
	fmt.Fprintln(w, "Adapters:")
	for _, a := range adapters {
		fmt.Fprintf(w, "  %s\n", a)
	}
}
