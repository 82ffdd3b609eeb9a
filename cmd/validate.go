package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/graviton/internal/config"
	"github.com/papapumpkin/graviton/internal/jacobian"
	"github.com/papapumpkin/graviton/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the model file's wiring and declared partials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		m, name, err := model.LoadFile(cfg.ModelPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "✓ model %q parsed: %d components, %d connections\n",
			name, len(m.Components()), len(m.Connections()))

		// A full assembler setup validates every declared partial against
		// the variable sizes and the wiring.
		if err := jacobian.New(m).Setup(); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "✓ all declared partials place cleanly")

		if leaves := m.DesignLeaves(); len(leaves) > 0 {
			fmt.Fprintf(os.Stderr, "  design variables: %s\n", strings.Join(leaves, ", "))
		} else {
			fmt.Fprintln(os.Stderr, "  no design variables (every input is connected)")
		}

		for _, scc := range m.Graph().StronglyConnected() {
			if len(scc) > 1 {
				fmt.Fprintf(os.Stderr, "  coupled group: %s\n", strings.Join(scc, " ⇄ "))
			}
		}
		if islands := m.Graph().Islands(); len(islands) > 1 {
			fmt.Fprintf(os.Stderr, "  note: model has %d independent islands\n", len(islands))
			for _, island := range islands {
				fmt.Fprintf(os.Stderr, "    %s\n", strings.Join(island, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
