package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/safememkit/internal/logger"
	"github.com/joshuapare/safememkit/internal/workload"
	"github.com/joshuapare/safememkit/safemem"
)

var (
	stressWorkers    int
	stressPhases     int
	stressIterations int
	stressHeap       string
	stressLock       string
	stressBlockSize  int
	stressMaxBytes   int64
)

func init() {
	cmd := newStressCmd()
	d := workload.DefaultConfig()
	cmd.Flags().IntVarP(&stressWorkers, "workers", "w", d.Workers, "Number of lockstep workers")
	cmd.Flags().IntVarP(&stressPhases, "phases", "p", d.Phases, "Coordinator phases (one sweep each)")
	cmd.Flags().IntVarP(&stressIterations, "iterations", "n", d.Iterations, "Ring steps per worker per phase")
	cmd.Flags().StringVar(&stressHeap, "heap", "go", "Storage provider: go or mmap")
	cmd.Flags().StringVar(&stressLock, "lock", "mutex", "Lock hook: mutex or spin")
	cmd.Flags().IntVar(&stressBlockSize, "block-size", safemem.DefaultOptions().BlockSize, "Slots added per table growth")
	cmd.Flags().Int64Var(&stressMaxBytes, "max-bytes", 0, "Cap on outstanding bytes (0 = unbounded)")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run the multi-worker allocation workload",
		Long: `The stress command runs lockstep workers that allocate, write, read back,
probe past the end of, and free handles, while a coordinator sweeps between
phases. Every accessor probe past an allocation must be refused and every
read must return what was written.

Example:
  safememctl stress
  safememctl stress --workers 12 --phases 50 --heap mmap
  safememctl stress --max-bytes 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
	return cmd
}

// stressResult is the JSON shape of a stress run.
type stressResult struct {
	Heap     string          `json:"heap"`
	Lock     string          `json:"lock"`
	Elapsed  string          `json:"elapsed"`
	Report   workload.Report `json:"report"`
	Error    string          `json:"error,omitempty"`
	Verified bool            `json:"verified"`
}

func runStress(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := stressOptions()
	if err != nil {
		return err
	}
	a := safemem.New(opts)

	cfg := workload.Config{
		Workers:    stressWorkers,
		Phases:     stressPhases,
		Iterations: stressIterations,
		Logger:     logger.L,
	}

	printVerbose("Running %d workers for %d phases (%s heap, %s lock)\n",
		stressWorkers, stressPhases, stressHeap, stressLock)
	start := time.Now()
	rep, runErr := workload.Run(ctx, a, cfg)
	elapsed := time.Since(start)
	verified := runErr == nil && rep.Mismatches == 0
	logger.Info("stress finished", "phases", rep.Phases, "elapsed", elapsed, "verified", verified)

	if jsonOut {
		res := stressResult{
			Heap:     stressHeap,
			Lock:     stressLock,
			Elapsed:  elapsed.String(),
			Report:   rep,
			Verified: verified,
		}
		if runErr != nil {
			res.Error = runErr.Error()
		}
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printInfo("Phases:        %d\n", rep.Phases)
		printInfo("Worker steps:  %d\n", rep.WorkerSteps)
		printInfo("Writes:        %d\n", rep.Writes)
		printInfo("Reads:         %d\n", rep.Reads)
		printInfo("Refused:       %d\n", rep.Refused)
		printInfo("Mismatches:    %d\n", rep.Mismatches)
		printInfo("Long-lived:    %d\n", rep.LongLived)
		printInfo("Elapsed:       %s\n", elapsed.Round(time.Millisecond))
		printInfo("\n")
		printStats(rep.Stats)
		printInfo("  Teardown:       released %d, %d live after\n",
			rep.Teardown.TornDown-rep.Stats.TornDown, rep.Teardown.Live)
	}

	if runErr != nil {
		return runErr
	}
	if rep.Mismatches != 0 {
		return fmt.Errorf("%d reads did not return the written value", rep.Mismatches)
	}
	return nil
}

func stressOptions() (*safemem.Options, error) {
	opts := safemem.DefaultOptions()
	opts.BlockSize = stressBlockSize
	opts.MaxBytes = stressMaxBytes
	opts.Logger = logger.L

	switch stressHeap {
	case "go":
		opts.Heap = safemem.RuntimeHeap()
	case "mmap":
		opts.Heap = safemem.MmapHeap()
	default:
		return nil, fmt.Errorf("unknown heap %q (want go or mmap)", stressHeap)
	}

	switch stressLock {
	case "mutex":
		opts.Locker = new(sync.Mutex)
	case "spin":
		opts.Locker = new(safemem.SpinLocker)
	default:
		return nil, fmt.Errorf("unknown lock %q (want mutex or spin)", stressLock)
	}
	return opts, nil
}

// printStats prints an allocator snapshot in text form.
func printStats(s safemem.Stats) {
	printInfo("Allocator\n")
	printInfo("  Epoch:          %d\n", s.Epoch)
	printInfo("  Slots:          %d (%d live)\n", s.Slots, s.Live)
	printInfo("  Poisoned:       %t (%d events)\n", s.Poisoned, s.PoisonEvents)
	printInfo("  Allocations:    %d of %d calls (%d failed)\n", s.Allocs, s.AllocCalls, s.AllocFailures)
	printInfo("  Frees:          %d of %d calls (%d rejected)\n", s.Frees, s.FreeCalls, s.FreeErrors)
	printInfo("  Keep-alives:    %d\n", s.KeepAlives)
	printInfo("  Sweeps:         %d (%d collected)\n", s.Sweeps, s.Collected)
	printInfo("  Teardowns:      %d (%d released)\n", s.Teardowns, s.TornDown)
	printInfo("  Bytes:          %d allocated, %d freed, %d live\n", s.BytesAllocated, s.BytesFreed, s.BytesLive)
	printVerbose("  Table:          %d grows, %d scans, %d second passes, %d slots visited\n",
		s.GrowEvents, s.Scans, s.SecondPasses, s.SlotsVisited)
	if s.ReleaseErrors > 0 {
		printInfo("  Release errors: %d\n", s.ReleaseErrors)
	}
}
