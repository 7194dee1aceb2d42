package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/inbound/httpapi"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the register front end",
		Long:  "Serve the order editor and dispenser actions over HTTP, with /health and /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			addr := rt.Config.HTTP.Listen
			if listen != "" {
				addr = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return httpapi.NewServer(rt, addr).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to http.listen)")

	return cmd
}
