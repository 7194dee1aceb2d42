package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/orderfile"
	"github.com/pourline/pourline/internal/adapters/outbound/tui"
	"github.com/pourline/pourline/internal/application"
)

func newEditCmd(g *globalFlags) *cobra.Command {
	var (
		orderPath  string
		line       int
		key        string
		buffer     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply one keypad input to an order line",
		Long: "Select a line of the order and apply a keypad input to it. Remove takes one unit " +
			"off a multi-unit line and withdraws one dispenser credit; on the last unit the line goes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := application.ParseInputKind(key)
			if err != nil {
				return err
			}

			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			o, err := orderfile.Load(orderPath, rt.Catalog)
			if err != nil {
				return err
			}
			lines := o.Lines()
			if line < 1 || line > len(lines) {
				return fmt.Errorf("--line %d out of range (order has %d lines)", line, len(lines))
			}
			if err := o.Select(lines[line-1].ID()); err != nil {
				return err
			}

			svc := rt.Service(tui.NewNotifier(cmd.ErrOrStderr()))
			svc.Track(o)
			res := svc.OnQuantityEditInput(o, application.Input{Kind: kind, Buffer: buffer})
			svc.Drain()

			if jsonOutput {
				if err := renderJSON(cmd, struct {
					Result application.EditResult `json:"result"`
					Order  any                    `json:"order"`
				}{res, o.View()}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n\n", res.Transition)
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderOrder(o.View()))
			}

			if res.Error != "" {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&orderPath, "order", "", "Order document (YAML)")
	cmd.Flags().IntVar(&line, "line", 0, "1-based line to select")
	cmd.Flags().StringVar(&key, "key", "remove", "Input kind: remove, backspace or numeric")
	cmd.Flags().StringVar(&buffer, "buffer", "", "Numeric entry buffer after the key")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("line")

	return cmd
}
