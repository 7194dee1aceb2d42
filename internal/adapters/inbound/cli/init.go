package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/config"
	"github.com/pourline/pourline/internal/domain"
)

func newInitCmd() *cobra.Command {
	var (
		middlewareURL string
		serverNo      int
		operator      string
		force         bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a .pourline.yaml configuration file",
		Long:  "Create a .pourline.yaml with the register's defaults for the middleware, the operator and the dispatch behaviour.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			dest := filepath.Join(absPath, config.FileName)

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
				}
			}

			cfg := domain.DefaultConfig()
			if middlewareURL != "" {
				cfg.Middleware.URL = middlewareURL
			}
			cfg.Operator.ServerNo = serverNo
			cfg.Operator.Name = operator
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := os.WriteFile(dest, []byte(generateConfig(cfg)), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().StringVar(&middlewareURL, "middleware-url", "", "Middleware URL")
	cmd.Flags().IntVar(&serverNo, "server-no", 1, "Dispenser server number of this register (0-99)")
	cmd.Flags().StringVar(&operator, "operator", "", "Operator name")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing .pourline.yaml")

	return cmd
}

func generateConfig(cfg domain.Config) string {
	result := fmt.Sprintf(`# pourline configuration

catalog: %s
ledger: %s

middleware:
  url: %s
  timeout: %s
  probe_timeout: %s
  serial_port: %s
  baudrate: %d
  auto_connect: %t

operator:
  name: %q
  server_no: %d
  barman: true
  server_label: %s

dispatch:
  default_plu: %s
  probe_before_send: %t
`,
		cfg.Catalog, cfg.Ledger,
		cfg.Middleware.URL, cfg.Middleware.Timeout, cfg.Middleware.ProbeTimeout,
		cfg.Middleware.SerialPort, cfg.Middleware.Baudrate, cfg.Middleware.AutoConnectEnabled(),
		cfg.Operator.Name, cfg.Operator.ServerNo, cfg.Operator.ServerLabel,
		cfg.Dispatch.DefaultPLU, cfg.Dispatch.ProbeEnabled(),
	)

	result += `
# cancellation:
#   max_in_flight: 4
#   timeout: 15s

# log:
#   level: info
#   format: json

# http:
#   listen: ":8089"
`

	return result
}
