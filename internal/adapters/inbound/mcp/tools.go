package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pourline/pourline/internal/adapters/outbound/orderfile"
	"github.com/pourline/pourline/internal/application"
	"github.com/pourline/pourline/internal/bootstrap"
	"github.com/pourline/pourline/internal/domain"
)

// registerTools registers all pourline MCP tools on the given server.
func registerTools(s *server.MCPServer, rt *bootstrap.Runtime) {
	// 1. pourline_send_order
	s.AddTool(
		mcplib.NewTool("pourline_send_order",
			mcplib.WithDescription("Send the dispenser-controlled lines of an order to the drink dispenser and return the session report"),
			mcplib.WithString("order",
				mcplib.Required(),
				mcplib.Description("Order document in YAML (id, session, lines with product/qty/parent)"),
			),
		),
		handleSendOrder(rt),
	)

	// 2. pourline_probe
	s.AddTool(
		mcplib.NewTool("pourline_probe",
			mcplib.WithDescription("Check whether the dispenser middleware is reachable"),
		),
		handleProbe(rt),
	)

	// 3. pourline_cancel_credits
	s.AddTool(
		mcplib.NewTool("pourline_cancel_credits",
			mcplib.WithDescription("Withdraw dispenser credits previously granted for a product in a session"),
			mcplib.WithString("session", mcplib.Required(), mcplib.Description("Session the credits belong to")),
			mcplib.WithString("product", mcplib.Required(), mcplib.Description("Product key or numeric id")),
			mcplib.WithNumber("quantity", mcplib.Description("Units to withdraw (default 1)")),
		),
		handleCancelCredits(rt),
	)

	// 4. pourline_edit_quantity
	s.AddTool(
		mcplib.NewTool("pourline_edit_quantity",
			mcplib.WithDescription("Apply one keypad input to a line of an order and return the resulting order"),
			mcplib.WithString("order", mcplib.Required(), mcplib.Description("Order document in YAML")),
			mcplib.WithNumber("line", mcplib.Required(), mcplib.Description("1-based line to select")),
			mcplib.WithString("key", mcplib.Required(), mcplib.Description("Input kind: remove, backspace or numeric")),
			mcplib.WithString("buffer", mcplib.Description("Numeric entry buffer after the key was applied")),
		),
		handleEditQuantity(rt),
	)

	// 5. pourline_credits
	s.AddTool(
		mcplib.NewTool("pourline_credits",
			mcplib.WithDescription("List the credit ledger of a session"),
			mcplib.WithString("session", mcplib.Required(), mcplib.Description("Session to list")),
		),
		handleCredits(rt),
	)
}

type sendOrderResult struct {
	Report        domain.SessionReport  `json:"report"`
	Notifications []domain.Notification `json:"notifications"`
}

func handleSendOrder(rt *bootstrap.Runtime) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		doc, err := request.RequireString("order")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		o, err := orderfile.Parse([]byte(doc), rt.Catalog)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid order: %v", err)), nil
		}
		if o.SessionID() == "" {
			o.SetSessionID(application.NewSessionID())
		}

		notes := &domain.NotificationLog{}
		report := rt.Service(notes).OnSendToDispenserRequested(ctx, o)
		return jsonResult(sendOrderResult{Report: report, Notifications: notes.Items()})
	}
}

func handleProbe(rt *bootstrap.Runtime) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		res, err := rt.Gateway.ProbeConnectivity(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("probe failed: %v", err)), nil
		}
		return jsonResult(res)
	}
}

func handleCancelCredits(rt *bootstrap.Runtime) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		session, err := request.RequireString("session")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		ref, err := request.RequireString("product")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		p, err := rt.Catalog.Lookup(ref)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		qty := intArg(request, "quantity", 1)
		if qty <= 0 {
			return errorResult(domain.ErrInvalidQuantity.Error()), nil
		}

		outcome := rt.Canceller.CancelCredits(ctx, session, *p, qty)
		if outcome.Err != nil {
			return errorResult(outcome.Message), nil
		}
		return jsonResult(outcome)
	}
}

type editResult struct {
	Result application.EditResult `json:"result"`
	Order  domain.OrderView       `json:"order"`
}

func handleEditQuantity(rt *bootstrap.Runtime) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		doc, err := request.RequireString("order")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		key, err := request.RequireString("key")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		kind, err := application.ParseInputKind(key)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		o, err := orderfile.Parse([]byte(doc), rt.Catalog)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid order: %v", err)), nil
		}

		lines := o.Lines()
		idx := intArg(request, "line", 0)
		if idx < 1 || idx > len(lines) {
			return errorResult(fmt.Sprintf("line %d out of range (order has %d lines)", idx, len(lines))), nil
		}
		if err := o.Select(lines[idx-1].ID()); err != nil {
			return errorResult(err.Error()), nil
		}

		buffer, _ := request.GetArguments()["buffer"].(string)
		svc := rt.Service(&domain.NotificationLog{})
		svc.Track(o)
		res := svc.OnQuantityEditInput(o, application.Input{Kind: kind, Buffer: buffer})
		svc.Drain()
		return jsonResult(editResult{Result: res, Order: o.View()})
	}
}

func handleCredits(rt *bootstrap.Runtime) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		session, err := request.RequireString("session")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		recs, err := rt.Gateway.Credits(ctx, session)
		if err != nil {
			return errorResult(fmt.Sprintf("listing credits failed: %v", err)), nil
		}
		return jsonResult(recs)
	}
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(request mcplib.CallToolRequest, name string, def int) int {
	switch v := request.GetArguments()[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
