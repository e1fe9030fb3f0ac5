package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

func benchCmd() *cobra.Command {
	var ops int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure runtime throughput",
		Long: `Measure signal, computed, and effect throughput.

Runs a series of micro benchmarks against the reactive runtime and
prints a table of results. The numbers are indicative; use go test
-bench for rigorous measurement.

Examples:
  ripple bench
  ripple bench --ops=1000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(ops)
		},
	}

	cmd.Flags().IntVarP(&ops, "ops", "n", 100000, "Operations per benchmark")

	return cmd
}

type benchResult struct {
	name  string
	ops   int
	total time.Duration
}

func runBench(ops int) error {
	if ops <= 0 {
		return fmt.Errorf("ops must be positive, got %d", ops)
	}
	// Effect benchmarks flush per write, so run fewer iterations.
	effectOps := ops / 10
	if effectOps < 1 {
		effectOps = 1
	}

	printBanner()
	fmt.Println("  bench")
	fmt.Println()

	results := []benchResult{
		benchSignalWrite(ops),
		benchSignalRead(ops),
		benchComputedRecompute(ops),
		benchComputedCachedRead(ops),
		benchEffectFlush(effectOps),
		benchBatchedWrites(ops),
	}

	fmt.Printf("  %-26s %12s %14s %10s\n", "operation", "ops", "total", "ns/op")
	for _, r := range results {
		fmt.Printf("  %-26s %12d %14s %10d\n",
			r.name, r.ops, r.total.Round(time.Microsecond),
			r.total.Nanoseconds()/int64(r.ops))
	}
	fmt.Println()
	return nil
}

func benchSignalWrite(n int) benchResult {
	s := ripple.NewSignal(0)
	start := time.Now()
	for i := 0; i < n; i++ {
		s.Set(i + 1)
	}
	return benchResult{"signal write", n, time.Since(start)}
}

func benchSignalRead(n int) benchResult {
	s := ripple.NewSignal(42)
	start := time.Now()
	for i := 0; i < n; i++ {
		_ = s.Get()
	}
	return benchResult{"signal read", n, time.Since(start)}
}

func benchComputedRecompute(n int) benchResult {
	s := ripple.NewSignal(0)
	c := ripple.NewComputed(func() int { return s.Get() * 2 })
	start := time.Now()
	for i := 0; i < n; i++ {
		s.Set(i + 1)
		_ = c.Get()
	}
	return benchResult{"computed recompute", n, time.Since(start)}
}

func benchComputedCachedRead(n int) benchResult {
	s := ripple.NewSignal(7)
	c := ripple.NewComputed(func() int { return s.Get() * 2 })
	_ = c.Get()
	start := time.Now()
	for i := 0; i < n; i++ {
		_ = c.Get()
	}
	return benchResult{"computed cached read", n, time.Since(start)}
}

func benchEffectFlush(n int) benchResult {
	s := ripple.NewSignal(0)
	e := ripple.CreateEffect(func() ripple.Cleanup {
		_ = s.Get()
		return nil
	})
	defer e.Dispose()

	start := time.Now()
	for i := 0; i < n; i++ {
		s.Set(i + 1)
		ripple.FlushSync()
	}
	return benchResult{"effect run (FlushSync)", n, time.Since(start)}
}

func benchBatchedWrites(n int) benchResult {
	s := ripple.NewSignal(0)
	e := ripple.CreateEffect(func() ripple.Cleanup {
		_ = s.Get()
		return nil
	})
	defer e.Dispose()

	start := time.Now()
	ripple.Batch(func() {
		for i := 0; i < n; i++ {
			s.Set(i + 1)
		}
	})
	ripple.FlushSync()
	return benchResult{"batched writes (1 flush)", n, time.Since(start)}
}
