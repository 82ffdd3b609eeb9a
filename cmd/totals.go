package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/papapumpkin/graviton/internal/config"
	"github.com/papapumpkin/graviton/internal/jacobian"
	"github.com/papapumpkin/graviton/internal/model"
	"github.com/papapumpkin/graviton/internal/recorder"
	"github.com/papapumpkin/graviton/internal/solve"
	"github.com/papapumpkin/graviton/internal/telemetry"
)

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Compute total derivatives of responses with respect to design variables",
	Long: "Totals loads the model file, assembles the global jacobian from the " +
		"declared partials, and solves for d(of)/d(wrt) in the cheaper of forward " +
		"and adjoint mode.",
	RunE: runTotals,
}

func init() {
	totalsCmd.Flags().StringSlice("of", nil, "response variables (component.output)")
	totalsCmd.Flags().StringSlice("wrt", nil, "design variables (component.input, unconnected)")
	totalsCmd.Flags().String("mode", "auto", "solve mode: auto, forward, or reverse")
	totalsCmd.Flags().String("record", "", "record the run into this SQLite database")
	totalsCmd.Flags().String("telemetry", "", "append JSONL telemetry events to this file")
	rootCmd.AddCommand(totalsCmd)
}

func runTotals(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	of, _ := cmd.Flags().GetStringSlice("of")
	wrt, _ := cmd.Flags().GetStringSlice("wrt")
	if modeFlag, _ := cmd.Flags().GetString("mode"); cmd.Flags().Changed("mode") {
		cfg.Mode = modeFlag
	}
	if rec, _ := cmd.Flags().GetString("record"); rec != "" {
		cfg.RecordDB = rec
	}
	if tel, _ := cmd.Flags().GetString("telemetry"); tel != "" {
		cfg.TelemetryPath = tel
	}

	m, name, err := model.LoadFile(cfg.ModelPath)
	if err != nil {
		return err
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return err
		}
		defer emitter.Close()
	}
	_ = emitter.Emit(telemetry.Event{Kind: telemetry.KindModelLoaded, Model: name})

	solver, err := buildSolver(m, cfg.Mode, emitter)
	if err != nil {
		return err
	}

	if err := m.Linearize(); err != nil {
		return err
	}

	res, err := solver.Totals(solve.Request{Of: of, Wrt: wrt})
	if err != nil {
		return err
	}

	printTotals(res, of, wrt)

	if cfg.RecordDB != "" {
		id, err := recordRun(cmd.Context(), cfg.RecordDB, name, res, of, wrt)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "recorded run %s\n", id)
	}
	return nil
}

func buildSolver(m *model.Model, mode string, emitter *telemetry.Emitter) (*solve.Solver, error) {
	asm := jacobian.New(m)
	if err := asm.Setup(); err != nil {
		return nil, err
	}

	opts := []solve.Option{solve.WithTelemetry(emitter)}
	switch mode {
	case "", "auto":
	case "forward":
		opts = append(opts, solve.WithMode(solve.Forward))
	case "reverse":
		opts = append(opts, solve.WithMode(solve.Reverse))
	default:
		return nil, fmt.Errorf("unknown mode %q (want auto, forward, or reverse)", mode)
	}
	return solve.New(m, asm, opts...), nil
}

func printTotals(res *solve.Result, of, wrt []string) {
	zero := make(map[[2]string]bool, len(res.ZeroBlocks))
	for _, zb := range res.ZeroBlocks {
		zero[zb] = true
	}

	fmt.Printf("mode: %s, solves: %d\n", res.Mode, res.Solves)
	for _, oq := range of {
		for _, wq := range wrt {
			fmt.Printf("\nd(%s)/d(%s)", oq, wq)
			if zero[[2]string{oq, wq}] {
				fmt.Print(" (structurally zero)")
			}
			fmt.Printf(":\n%v\n", mat.Formatted(res.Block(oq, wq), mat.Prefix("")))
		}
	}
}

func recordRun(ctx context.Context, dbPath, modelName string, res *solve.Result, of, wrt []string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := recorder.Open(ctx, dbPath)
	if err != nil {
		return "", err
	}
	defer rec.Close()

	var blocks []recorder.Block
	for _, oq := range of {
		for _, wq := range wrt {
			b := res.Block(oq, wq)
			r, c := b.Dims()
			data := make([]float64, 0, r*c)
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					data = append(data, b.At(i, j))
				}
			}
			blocks = append(blocks, recorder.Block{Of: oq, Wrt: wq, Rows: r, Cols: c, Data: data})
		}
	}
	return rec.Record(ctx, modelName, res.Mode.String(), res.Solves, blocks)
}
