package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/graviton/internal/config"
	"github.com/papapumpkin/graviton/internal/jacobian"
	"github.com/papapumpkin/graviton/internal/model"
	"github.com/papapumpkin/graviton/internal/solve"
	"github.com/papapumpkin/graviton/internal/telemetry"
	"github.com/papapumpkin/graviton/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute totals whenever the model file changes",
	Long: "Watch monitors the model file and, on every save, revalidates it and " +
		"recomputes the requested totals. Useful while hand-tuning declared " +
		"partials or wiring.",
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSlice("of", nil, "response variables (component.output)")
	watchCmd.Flags().StringSlice("wrt", nil, "design variables (component.input, unconnected)")
	watchCmd.Flags().String("telemetry", "", "append JSONL telemetry events to this file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	of, _ := cmd.Flags().GetStringSlice("of")
	wrt, _ := cmd.Flags().GetStringSlice("wrt")
	if tel, _ := cmd.Flags().GetString("telemetry"); tel != "" {
		cfg.TelemetryPath = tel
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		var err error
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return err
		}
		defer emitter.Close()
	}

	// One pass up front so a broken file is reported immediately.
	recompute(cfg.ModelPath, of, wrt, cfg.Mode, emitter)

	w, err := watch.New(cfg.ModelPath)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", w.Path)
	for {
		select {
		case change := <-w.Changes:
			_ = emitter.Emit(telemetry.Event{
				Kind: telemetry.KindWatchChange,
				Data: map[string]any{"path": change.Path, "removed": change.Removed},
			})
			if change.Removed {
				fmt.Fprintf(os.Stderr, "model file removed, waiting for it to return\n")
				continue
			}
			recompute(cfg.ModelPath, of, wrt, cfg.Mode, emitter)
		case <-cmd.Context().Done():
			return nil
		}
	}
}

// recompute loads, validates, and (when a request is given) solves. Errors are
// printed rather than returned: a broken intermediate save is normal while
// editing, and the next save gets a fresh attempt.
func recompute(path string, of, wrt []string, mode string, emitter *telemetry.Emitter) {
	m, name, err := model.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return
	}
	_ = emitter.Emit(telemetry.Event{Kind: telemetry.KindModelLoaded, Model: name})

	if len(of) == 0 || len(wrt) == 0 {
		if err := jacobian.New(m).Setup(); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "✓ %s valid\n", name)
		return
	}

	solver, err := buildSolver(m, mode, emitter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return
	}
	if err := m.Linearize(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return
	}
	res, err := solver.Totals(solve.Request{Of: of, Wrt: wrt})
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return
	}
	printTotals(res, of, wrt)
}
