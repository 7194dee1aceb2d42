package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pourline/pourline/internal/adapters/outbound/history"
	"github.com/pourline/pourline/internal/adapters/outbound/orderfile"
	"github.com/pourline/pourline/internal/adapters/outbound/tui"
	"github.com/pourline/pourline/internal/application"
	"github.com/pourline/pourline/internal/domain"
)

func newSendCmd(g *globalFlags) *cobra.Command {
	var (
		orderPath  string
		sessionID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an order's dispenser lines to the dispenser",
		Long:  "Grant one dispenser credit per dispenser-controlled line of the order. Plain products are ignored and cocktails send one credit per ingredient.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			o, err := orderfile.Load(orderPath, rt.Catalog)
			if err != nil {
				return err
			}
			if sessionID != "" {
				o.SetSessionID(sessionID)
			}
			if o.SessionID() == "" {
				o.SetSessionID(application.NewSessionID())
			}

			var notifier domain.Notifier = tui.NewNotifier(cmd.ErrOrStderr())
			if jsonOutput {
				notifier = &domain.NotificationLog{}
			}
			report := rt.Service(notifier).OnSendToDispenserRequested(cmd.Context(), o)

			// Save to history
			entry := domain.DispatchEntry{
				Timestamp: time.Now().Format(time.RFC3339),
				OrderID:   o.ID(),
				SessionID: o.SessionID(),
				Operator:  rt.Operator.Name,
				Report:    report,
			}
			if err := history.New().Save(g.dir, entry); err != nil {
				rt.Logger.WithError(err).Warn("could not save dispatch history")
			}

			if jsonOutput {
				if err := renderJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(report))
			}

			switch {
			case report.Status == domain.ReportDenied:
				return domain.ErrAuthorizationDenied
			case report.Status == domain.ReportEmpty:
				return nil
			case !report.AllSucceeded():
				return fmt.Errorf("dispatch incomplete: %s credits sent", report.Ratio())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&orderPath, "order", "", "Order document (YAML)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (defaults to the order's, or a new one)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	_ = cmd.MarkFlagRequired("order")

	return cmd
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
