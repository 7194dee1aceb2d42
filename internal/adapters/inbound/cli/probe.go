package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/tui"
)

func newProbeCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the dispenser middleware is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Gateway.ProbeConnectivity(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := renderJSON(cmd, res); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderProbe(res))
			}

			if !res.Success {
				return fmt.Errorf("middleware unreachable at %s", res.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the probe result as JSON")

	return cmd
}
