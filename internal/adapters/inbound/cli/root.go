package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/bootstrap"
	"github.com/pourline/pourline/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// globalFlags are shared by every command that talks to the dispenser.
type globalFlags struct {
	dir           string
	middlewareURL string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "pourline",
		Short: "Dispenser credits for the bar register",
		Long: "Pourline grants drink-dispenser credits for the dispenser-controlled lines of an order " +
			"and withdraws them when units leave the order.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "Workspace holding .pourline.yaml, the catalog and the ledger")
	cmd.PersistentFlags().StringVar(&g.middlewareURL, "middleware-url", "", "Override the middleware URL")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSendCmd(g))
	cmd.AddCommand(newProbeCmd(g))
	cmd.AddCommand(newCancelCmd(g))
	cmd.AddCommand(newEditCmd(g))
	cmd.AddCommand(newCreditsCmd(g))
	cmd.AddCommand(newHistoryCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func (g *globalFlags) runtime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return bootstrap.New(ctx, bootstrap.Options{
		Dir:       g.dir,
		Version:   version,
		LogOutput: cmd.ErrOrStderr(),
		Mutate: func(c *domain.Config) {
			if g.middlewareURL != "" {
				c.Middleware.URL = g.middlewareURL
			}
			if g.logLevel != "" {
				c.Log.Level = g.logLevel
			}
		},
	})
}
