package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/gogpu/pingpong"
	_ "github.com/gogpu/pingpong/gpu" // registers the GPU device
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ticks until interrupted",
	Long: `Run opens a device and executes one tick per period. Flags override the ` +
		`COUNTER_* environment variables, which override the defaults.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCounter(cmd)
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("length", pingpong.DefaultVectorLength, "vector length (multiple of 4)")
	f.Duration("period", pingpong.DefaultPeriod, "tick period")
	f.Float32("norm-max", pingpong.DefaultNormalizationMax, "normalization maximum for the red channel")
	f.Float32("modulus", pingpong.DefaultModulus, "wrap-around modulus")
	f.String("backend", "auto", "device backend: auto, gpu, software")
	f.String("initial", "", "initial vector, comma separated (default 0,1,2,...)")
	f.Uint64("ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	f.Bool("log-frames", false, "also report frames through the logger")
	f.String("png", "", "directory receiving one PNG snapshot per tick")
	f.String("metrics", "", "write Prometheus metrics to this textfile on exit")
}

// flagOptions turns explicitly set flags into config options.
func flagOptions(cmd *cobra.Command) ([]pingpong.Option, error) {
	f := cmd.Flags()
	var opts []pingpong.Option
	if f.Changed("length") {
		n, _ := f.GetInt("length")
		opts = append(opts, pingpong.WithVectorLength(n))
	}
	if f.Changed("period") {
		d, _ := f.GetDuration("period")
		opts = append(opts, pingpong.WithPeriod(d))
	}
	if f.Changed("norm-max") {
		v, _ := f.GetFloat32("norm-max")
		opts = append(opts, pingpong.WithNormalizationMax(v))
	}
	if f.Changed("modulus") {
		v, _ := f.GetFloat32("modulus")
		opts = append(opts, pingpong.WithModulus(v))
	}
	if f.Changed("backend") {
		s, _ := f.GetString("backend")
		b, err := pingpong.ParseBackend(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pingpong.WithBackend(b))
	}
	if f.Changed("initial") {
		s, _ := f.GetString("initial")
		v, err := pingpong.ParseVector(s)
		if err != nil {
			return nil, fmt.Errorf("--initial: %w", err)
		}
		opts = append(opts, pingpong.WithInitial(v))
	}
	return opts, nil
}

func runCounter(cmd *cobra.Command) error {
	opts, err := flagOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := pingpong.ConfigFromEnv(opts...)
	if err != nil {
		return err
	}

	dev, err := pingpong.OpenDevice(cfg)
	if err != nil {
		return err
	}
	atexit.Register(dev.Close)

	sinks := pingpong.MultiSink{pingpong.NewTextSink(os.Stdout)}
	if ok, _ := cmd.Flags().GetBool("log-frames"); ok {
		sinks = append(sinks, pingpong.LogSink{Logger: pingpong.Logger()})
	}
	if dir, _ := cmd.Flags().GetString("png"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		sinks = append(sinks, pingpong.PNGSink{Dir: dir})
	}

	metrics := pingpong.NewMetrics()
	if path, _ := cmd.Flags().GetString("metrics"); path != "" {
		atexit.Register(func() {
			if err := metrics.WriteTextfile(path); err != nil {
				fmt.Fprintf(os.Stderr, "pingpong: write metrics: %v\n", err)
			}
		})
	}

	sched, err := pingpong.NewScheduler(dev,
		pingpong.WithSink(sinks),
		pingpong.WithMetrics(metrics),
		pingpong.WithSchedulePeriod(cfg.Period))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingpong.Logger().Info("pingpong: device opened",
		"device", dev.Name(),
		"length", cfg.VectorLength,
		"period", cfg.Period)

	ticks, _ := cmd.Flags().GetUint64("ticks")
	if ticks == 0 {
		err = sched.Run(ctx)
	} else {
		err = runTicks(ctx, sched, ticks, cfg.Period)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runTicks executes n ticks, the first immediately and the rest one period
// apart. Failed ticks count toward n.
func runTicks(ctx context.Context, s *pingpong.Scheduler, n uint64, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for i := uint64(0); i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if _, err := s.Tick(ctx); errors.Is(err, pingpong.ErrDeviceNotReady) {
			return err
		}
	}
	return nil
}
