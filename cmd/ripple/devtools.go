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

	"github.com/ripple-dev/ripple/internal/config"
	"github.com/ripple-dev/ripple/pkg/devtools"
	"github.com/ripple-dev/ripple/pkg/metrics"
	"github.com/ripple-dev/ripple/pkg/ripple"
)

func devtoolsCmd() *cobra.Command {
	var (
		addr string
		demo bool
	)

	cmd := &cobra.Command{
		Use:   "devtools",
		Short: "Run the runtime inspector",
		Long: `Run the runtime inspector server.

The inspector exposes live graph counters, Prometheus metrics, and a
websocket stream of runtime events:

  GET /healthz   liveness probe
  GET /snapshot  JSON counters for the live graph
  GET /metrics   Prometheus exposition
  GET /events    websocket event stream

With --demo a synthetic reactive workload runs in-process so the
endpoints have something to show.

Examples:
  ripple devtools
  ripple devtools --addr=0.0.0.0:9990 --demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevtools(addr, demo)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from ripple.json)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Drive a demo reactive workload")

	return cmd
}

func runDevtools(addr string, demo bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Devtools.Addr = addr
	}

	ripple.SetFlushBudget(cfg.Scheduler.FlushBudget)

	// The collector registers on the default registry, which is what the
	// inspector's /metrics serves.
	collector := metrics.New(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
	)
	server := devtools.New(&devtools.Config{
		Addr:       cfg.Devtools.Addr,
		SendBuffer: cfg.Devtools.SendBuffer,
	})
	ripple.SetInstrumentation(ripple.CombineInstrumentation(collector, server))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n  Shutting down...")
		cancel()
	}()

	printBanner()
	fmt.Println("  devtools")
	fmt.Println()

	if demo {
		go runDemoWorkload(ctx)
		info("demo workload running")
	}

	return server.Start(ctx)
}

// loadConfig loads ripple.json from the nearest project root, falling back
// to defaults when no file exists.
func loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			warn("no %s found, using defaults", config.ConfigFileName)
			return config.New(), nil
		}
		return nil, err
	}
	return config.Load(root)
}

// runDemoWorkload drives a small reactive graph so the inspector has
// traffic to show: a counter, a derived parity, and an observing effect.
func runDemoWorkload(ctx context.Context) {
	counter := ripple.NewSignal(0, ripple.Named("demo.counter"))
	temp := ripple.NewSignal(20.0, ripple.Named("demo.temperature"))

	parity := ripple.NewComputed(func() string {
		if counter.Get()%2 == 0 {
			return "even"
		}
		return "odd"
	})

	eff := ripple.CreateEffect(func() ripple.Cleanup {
		_ = parity.Get()
		_ = temp.Get()
		return nil
	}, ripple.EffectName("demo.observer"))
	defer eff.Dispose()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counter.Update(func(n int) int { return n + 1 })
			temp.Set(15 + float64(counter.Peek()%10))
		}
	}
}
