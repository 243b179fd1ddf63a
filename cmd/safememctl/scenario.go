package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/safememkit/internal/logger"
	"github.com/joshuapare/safememkit/pkg/types"
	"github.com/joshuapare/safememkit/safemem"
)

var (
	scenarioSize     int
	scenarioLifetime uint64
	scenarioSweeps   int
)

func init() {
	cmd := newScenarioCmd()
	cmd.Flags().IntVar(&scenarioSize, "size", 40, "Bytes to allocate")
	cmd.Flags().Uint64Var(&scenarioLifetime, "lifetime", 3, "Lifetime in epochs (0 = forever)")
	cmd.Flags().IntVar(&scenarioSweeps, "sweeps", 5, "Sweeps to run")
	rootCmd.AddCommand(cmd)
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Walk one allocation through its lifetime",
		Long: `The scenario command allocates one buffer with a lifetime, sweeps
repeatedly and reports when the handle stops validating. It then frees a
handle and allocates again to show that the freed handle is rejected.

Example:
  safememctl scenario
  safememctl scenario --size 4096 --lifetime 10 --sweeps 12
  safememctl scenario --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario()
		},
	}
	return cmd
}

// scenarioStep is one observed allocator state.
type scenarioStep struct {
	Action string `json:"action"`
	Epoch  uint64 `json:"epoch"`
	Handle string `json:"handle"`
	Valid  bool   `json:"valid"`
	Live   int    `json:"live"`
	Status string `json:"status,omitempty"`
}

func runScenario() error {
	if scenarioSweeps < 0 {
		return fmt.Errorf("sweeps must be non-negative, got %d", scenarioSweeps)
	}

	a := safemem.New(&safemem.Options{Logger: logger.L})
	var steps []scenarioStep
	record := func(action string, h safemem.Handle, err error) {
		st := scenarioStep{
			Action: action,
			Epoch:  a.Epoch(),
			Handle: h.String(),
			Valid:  a.Valid(h),
			Live:   a.Live(),
		}
		if err != nil {
			st.Status = types.StatusOf(err).String()
		}
		steps = append(steps, st)
	}

	h, err := a.Allocate(scenarioSize, scenarioLifetime)
	if err != nil {
		return fmt.Errorf("allocate %d bytes: %w", scenarioSize, err)
	}
	record(fmt.Sprintf("allocate %dB, lifetime %d", scenarioSize, scenarioLifetime), h, nil)

	collectedAt := 0
	for i := 1; i <= scenarioSweeps; i++ {
		if err := a.CollectGarbage(); err != nil {
			return fmt.Errorf("sweep %d: %w", i, err)
		}
		record(fmt.Sprintf("sweep %d", i), h, nil)
		if collectedAt == 0 && !a.Valid(h) {
			collectedAt = i
		}
	}

	// Stale handle: the slot is reused by a new generation.
	old, err := a.Allocate(8, 0)
	if err != nil {
		return err
	}
	record("allocate 8B", old, nil)
	record("free", old, a.Free(old))
	reused, err := a.Allocate(8, 0)
	if err != nil {
		return err
	}
	record("reallocate 8B", reused, nil)
	record("deref old", old, nil)
	record("free old", old, a.Free(old))

	if err := a.CollectAll(); err != nil {
		return err
	}
	record("collect all", reused, nil)

	if jsonOut {
		return printJSON(struct {
			CollectedAt int            `json:"collectedAtSweep"`
			Steps       []scenarioStep `json:"steps"`
		}{collectedAt, steps})
	}

	for _, st := range steps {
		line := fmt.Sprintf("%-28s epoch %-4d valid=%-5t live=%d  %s", st.Action, st.Epoch, st.Valid, st.Live, st.Handle)
		if st.Status != "" {
			line += "  -> " + st.Status
		}
		printInfo("%s\n", line)
	}
	if collectedAt > 0 {
		printInfo("\nCollected on sweep %d\n", collectedAt)
	} else {
		printInfo("\nStill live after %d sweeps\n", scenarioSweeps)
	}
	return nil
}
