package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/tui"
	"github.com/pourline/pourline/internal/domain"
)

func newCancelCmd(g *globalFlags) *cobra.Command {
	var (
		sessionID string
		product   string
		quantity  int
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Withdraw dispenser credits granted in a session",
		Long:  "Withdraw the newest credits of a product in a session, one unit per middleware call. Cocktails withdraw one unit per ingredient.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quantity <= 0 {
				return fmt.Errorf("--qty %d: %w", quantity, domain.ErrInvalidQuantity)
			}

			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.Catalog.Lookup(product)
			if err != nil {
				return err
			}

			outcome := rt.Canceller.CancelCredits(cmd.Context(), sessionID, *p, quantity)
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderCancel(outcome))
			return outcome.Err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session the credits belong to")
	cmd.Flags().StringVar(&product, "product", "", "Product key or numeric id")
	cmd.Flags().IntVar(&quantity, "qty", 1, "Units to withdraw")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}
