package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/history"
	"github.com/pourline/pourline/internal/adapters/outbound/tui"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the dispatch runs of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.New().Load(g.dir)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			if jsonOutput {
				return renderJSON(cmd, entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output history as JSON")

	return cmd
}
