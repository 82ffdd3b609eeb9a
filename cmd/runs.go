package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/graviton/internal/config"
	"github.com/papapumpkin/graviton/internal/recorder"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded totals runs, or show one run's blocks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.RecordDB = db
		}
		if cfg.RecordDB == "" {
			return fmt.Errorf("no run database configured (set --db or record_db)")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rec, err := recorder.Open(ctx, cfg.RecordDB)
		if err != nil {
			return err
		}
		defer rec.Close()

		if len(args) == 1 {
			return showRun(ctx, rec, args[0])
		}

		runs, err := rec.Runs(ctx)
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Printf("%s  %-20s %-8s %3d solves  %s\n",
				run.ID, run.Model, run.Mode, run.Solves, run.Created.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().String("db", "", "run database (default record_db from config)")
	rootCmd.AddCommand(runsCmd)
}

func showRun(ctx context.Context, rec *recorder.Recorder, runID string) error {
	blocks, err := rec.Blocks(ctx, runID)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return fmt.Errorf("no blocks recorded for run %s", runID)
	}
	for _, b := range blocks {
		fmt.Printf("d(%s)/d(%s)  [%dx%d]\n", b.Of, b.Wrt, b.Rows, b.Cols)
		for i := 0; i < b.Rows; i++ {
			fmt.Print(" ")
			for j := 0; j < b.Cols; j++ {
				fmt.Printf(" %12.6g", b.Data[i*b.Cols+j])
			}
			fmt.Println()
		}
	}
	return nil
}
