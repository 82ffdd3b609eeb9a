package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/graviton/internal/config"
	"github.com/papapumpkin/graviton/internal/model"
	"github.com/papapumpkin/graviton/internal/ui"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the component dependency graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		m, _, err := model.LoadFile(cfg.ModelPath)
		if err != nil {
			return err
		}

		width, _ := cmd.Flags().GetInt("width")
		fmt.Fprint(os.Stderr, renderModelGraph(m, width, cfg.Color))
		return nil
	},
}

func init() {
	graphCmd.Flags().Int("width", 100, "render width in columns")
	rootCmd.AddCommand(graphCmd)
}

// renderModelGraph draws the model's evaluation structure: topological groups
// top to bottom, coupled cycles double-boxed, implicit components highlighted.
func renderModelGraph(m *model.Model, width int, color bool) string {
	g := m.Graph()

	coupled := make(map[string]bool)
	for _, scc := range g.StronglyConnected() {
		if len(scc) > 1 {
			for _, name := range scc {
				coupled[name] = true
			}
		}
	}
	implicit := make(map[string]bool)
	for _, c := range m.Components() {
		if c.Kind == model.Implicit {
			implicit[c.Name] = true
		}
	}
	producers := make(map[string][]string)
	for _, c := range m.Components() {
		if preds := g.Predecessors(c.Name); len(preds) > 0 {
			producers[c.Name] = preds
		}
	}

	r := &ui.Renderer{Width: width, UseColor: color, Coupled: coupled, Implicit: implicit}
	return r.Render(g.TopologicalGroups(), producers)
}
