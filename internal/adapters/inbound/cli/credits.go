package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreditsCmd(g *globalFlags) *cobra.Command {
	var (
		sessionID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "credits",
		Short: "List the credit ledger",
		Long:  "List the credits granted and withdrawn, for one session or for every session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			recs, err := rt.Gateway.Credits(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("listing credits: %w", err)
			}
			if jsonOutput {
				return renderJSON(cmd, recs)
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No credits recorded")
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(out, "%-20s %-28s %-6s %2d/%-2d %-9s %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.ProductName, r.PLU, r.Remaining, r.Quantity, r.Status, r.SessionID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only list this session")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
