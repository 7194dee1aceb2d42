package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// GatewayOptions tunes the gateway service.
type GatewayOptions struct {
	DefaultPLU  string
	AutoConnect bool
}

// GatewayService is the server side of the dispenser: it enforces the
// operator gate, talks to the Hart96 middleware and keeps the session's
// credit ledger. Middleware failures come back as unsuccessful results; the
// returned error is reserved for a cancelled context.
type GatewayService struct {
	client   domain.MiddlewareClient
	ledger   domain.CreditLedger
	catalog  *domain.Catalog
	operator domain.Operator
	logger   *logging.Logger
	opts     GatewayOptions
	now      func() time.Time
}

// NewGatewayService creates a GatewayService with all required dependencies.
func NewGatewayService(
	client domain.MiddlewareClient,
	ledger domain.CreditLedger,
	catalog *domain.Catalog,
	operator domain.Operator,
	logger *logging.Logger,
	opts GatewayOptions,
) *GatewayService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &GatewayService{
		client: client, ledger: ledger, catalog: catalog,
		operator: operator, logger: logger, opts: opts,
		now: time.Now,
	}
}

// CreditResult is the outcome of one credit inside a batch.
type CreditResult struct {
	Command domain.CreditCommand   `json:"command"`
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Reply   domain.MiddlewareReply `json:"reply,omitempty"`
}

// BatchResult is the outcome of SendBatch.
type BatchResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	SuccessCount int            `json:"success_count"`
	Total        int            `json:"total_credits"`
	Results      []CreditResult `json:"results,omitempty"`
}

// SendCredit grants one simple-item credit for the session carried by ctx.
// The server number always comes from the operator.
func (g *GatewayService) SendCredit(ctx context.Context, item domain.DispatchItem) (domain.RemoteResult, error) {
	if err := g.ensureOperator(); err != nil {
		return failed(err.Error()), nil
	}

	plu := item.Code
	if plu == "" {
		plu = (&domain.Product{}).DispenseCode(g.opts.DefaultPLU)
	}
	cmd := domain.CreditCommand{
		ServerNo: g.operator.ServerNo,
		PLU:      plu,
		Sign:     domain.SignGrant,
		Quantity: item.Quantity,
	}

	reply, err := g.sendOne(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RemoteResult{}, ctx.Err()
		}
		return failed(describe(err)), nil
	}

	rec := g.record(ctx, domain.SessionFromContext(ctx), item.Name, cmd, reply)
	return domain.RemoteResult{
		Success: true,
		Message: orDefault(reply.Message, "Credit sent"),
		Details: map[string]any{
			"credit_id":           rec.ID,
			"server_no":           cmd.ServerNo,
			"middleware_response": replyPayload(reply),
		},
	}, nil
}

// SendIngredients grants one credit per ingredient of a composite product,
// sharing a single middleware connection.
func (g *GatewayService) SendIngredients(ctx context.Context, productID int64, quantity int, serverLabel string) (domain.RemoteResult, error) {
	if err := g.ensureOperator(); err != nil {
		return failed(err.Error()), nil
	}

	product, msg := g.cocktail(productID)
	if product == nil {
		return failed(msg), nil
	}

	cmds := make([]domain.CreditCommand, 0, len(product.Ingredients))
	for _, ing := range product.Ingredients {
		cmds = append(cmds, domain.CreditCommand{
			ServerNo: g.operator.ServerNo,
			PLU:      ing.PLUCode,
			Sign:     domain.SignGrant,
			Quantity: quantity,
		})
	}

	batch, err := g.SendBatch(ctx, cmds)
	if err != nil {
		return domain.RemoteResult{}, err
	}

	sessionID := domain.SessionFromContext(ctx)
	details := make([]map[string]any, 0, len(batch.Results))
	for i, r := range batch.Results {
		ing := product.Ingredients[i]
		if r.Success {
			g.record(ctx, sessionID, product.Label()+" - "+ing.Name, r.Command, r.Reply)
		}
		details = append(details, map[string]any{
			"ingredient_name": ing.Name,
			"plu_code":        ing.PLUCode,
			"success":         r.Success,
			"message":         r.Message,
		})
	}

	g.logger.Info("cocktail ingredients sent",
		"product", product.Label(),
		"server_label", serverLabel,
		"sent", batch.SuccessCount,
		"total", batch.Total,
	)

	return domain.RemoteResult{
		Success: batch.Success,
		Message: fmt.Sprintf("Cocktail %q: %s (qty %d)", product.Label(), batch.Message, quantity),
		Details: map[string]any{
			"ingredients":        details,
			"total_credits_sent": batch.SuccessCount,
			"server_label":       serverLabel,
		},
	}, nil
}

// SendBatch sends cmds over one connect/disconnect cycle. A failed connect
// aborts the batch before any credit is sent.
func (g *GatewayService) SendBatch(ctx context.Context, cmds []domain.CreditCommand) (BatchResult, error) {
	if len(cmds) == 0 {
		return BatchResult{Message: "No credits to send"}, nil
	}
	if err := g.client.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return BatchResult{}, ctx.Err()
		}
		g.logger.WithError(err).Warn("middleware connect failed, batch aborted")
		return BatchResult{
			Total:   len(cmds),
			Message: "Cannot connect to the middleware: " + describe(err),
		}, nil
	}
	defer g.disconnect(ctx)

	out := BatchResult{Total: len(cmds), Results: make([]CreditResult, 0, len(cmds))}
	for i, cmd := range cmds {
		reply, err := g.client.SendCredit(ctx, cmd)
		r := CreditResult{Command: cmd, Reply: reply}
		if err != nil {
			r.Message = describe(err)
			g.logger.Warn("credit failed", "index", i+1, "total", len(cmds), "plu", cmd.PLU, "message", r.Message)
		} else {
			r.Success = true
			r.Message = orDefault(reply.Message, "Credit sent")
			out.SuccessCount++
		}
		out.Results = append(out.Results, r)
	}
	out.Success = out.SuccessCount == out.Total
	out.Message = fmt.Sprintf("%d/%d credits sent", out.SuccessCount, out.Total)
	return out, nil
}

// CancelSimpleCredits withdraws up to quantity units of the session's newest
// credits for code, one unit per middleware call.
func (g *GatewayService) CancelSimpleCredits(ctx context.Context, sessionID, code string, quantity int, displayName string) (domain.RemoteResult, error) {
	if err := g.ensureOperator(); err != nil {
		return failed(err.Error()), nil
	}
	cancelled, err := g.cancelUnits(ctx, sessionID, code, quantity, displayName)
	if err != nil {
		if errors.Is(err, domain.ErrNoCreditsToCancel) {
			return failed(fmt.Sprintf("No active credit to cancel for %s", displayName)), nil
		}
		if ctx.Err() != nil {
			return domain.RemoteResult{}, ctx.Err()
		}
		return failed(err.Error()), nil
	}
	return domain.RemoteResult{
		Success: cancelled > 0,
		Message: fmt.Sprintf("%d credit(s) cancelled for %s", cancelled, displayName),
		Details: map[string]any{"cancelled_count": cancelled},
	}, nil
}

// CancelCompositeCredits withdraws quantity units for every ingredient of a
// composite product.
func (g *GatewayService) CancelCompositeCredits(ctx context.Context, sessionID string, productID int64, quantity int) (domain.RemoteResult, error) {
	if err := g.ensureOperator(); err != nil {
		return failed(err.Error()), nil
	}
	product, msg := g.cocktail(productID)
	if product == nil {
		return failed(msg), nil
	}

	total := 0
	for _, ing := range product.Ingredients {
		n, err := g.cancelUnits(ctx, sessionID, ing.PLUCode, quantity, product.Label()+" - "+ing.Name)
		if err != nil && ctx.Err() != nil {
			return domain.RemoteResult{}, ctx.Err()
		}
		if err != nil {
			g.logger.WithError(err).Debug("ingredient cancellation skipped", "ingredient", ing.Name)
		}
		total += n
	}
	if total == 0 {
		return failed(fmt.Sprintf("No ingredient credit to cancel for %s", product.Label())), nil
	}
	return domain.RemoteResult{
		Success: true,
		Message: fmt.Sprintf("%d ingredient credit(s) cancelled for %s", total, product.Label()),
		Details: map[string]any{"cancelled_count": total},
	}, nil
}

// ProbeConnectivity asks the middleware for its status.
func (g *GatewayService) ProbeConnectivity(ctx context.Context) (domain.ProbeResult, error) {
	res, err := g.client.Status(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ProbeResult{}, ctx.Err()
		}
		res.Success = false
		res.Message = describe(err)
	}
	return res, nil
}

// Credits lists the ledger entries of a session.
func (g *GatewayService) Credits(ctx context.Context, sessionID string) ([]domain.CreditRecord, error) {
	if g.ledger == nil {
		return nil, nil
	}
	return g.ledger.List(ctx, sessionID)
}

func (g *GatewayService) cancelUnits(ctx context.Context, sessionID, code string, quantity int, displayName string) (int, error) {
	if g.ledger == nil {
		return 0, domain.ErrNoCreditsToCancel
	}
	credits, err := g.ledger.ActiveCredits(ctx, sessionID, code, quantity)
	if err != nil {
		return 0, fmt.Errorf("loading active credits: %w", err)
	}
	if len(credits) == 0 {
		g.logger.Warn("no active credit found", "session", sessionID, "plu", code)
		return 0, domain.ErrNoCreditsToCancel
	}

	cancelled := 0
	var lastErr error
	for _, credit := range credits {
		for units := credit.Remaining; units > 0 && cancelled < quantity; units-- {
			cmd := domain.CreditCommand{
				ServerNo: credit.ServerNo,
				PLU:      credit.PLU,
				Sign:     domain.SignRevoke,
				Quantity: 1,
			}
			reply, err := g.sendOne(ctx, cmd)
			if err != nil {
				lastErr = err
				g.logger.WithError(err).Warn("credit cancellation refused", "credit", credit.ID)
				break
			}
			if _, err := g.ledger.CancelUnit(ctx, credit.ID, g.now(), replyPayload(reply)); err != nil {
				g.logger.WithError(err).Warn("ledger update failed", "credit", credit.ID)
			}
			g.recordCancellation(ctx, sessionID, displayName, credit, reply)
			cancelled++
		}
		if cancelled >= quantity {
			break
		}
	}

	if cancelled == 0 && lastErr != nil {
		return 0, errors.New(describe(lastErr))
	}
	return cancelled, nil
}

func (g *GatewayService) sendOne(ctx context.Context, cmd domain.CreditCommand) (domain.MiddlewareReply, error) {
	if g.opts.AutoConnect {
		if err := g.client.Connect(ctx); err != nil {
			g.logger.WithError(err).Warn("middleware connect failed")
		}
		defer g.disconnect(ctx)
	}
	return g.client.SendCredit(ctx, cmd)
}

func (g *GatewayService) disconnect(ctx context.Context) {
	if err := g.client.Disconnect(context.WithoutCancel(ctx)); err != nil {
		g.logger.WithError(err).Warn("middleware disconnect failed")
	}
}

func (g *GatewayService) record(ctx context.Context, sessionID, name string, cmd domain.CreditCommand, reply domain.MiddlewareReply) domain.CreditRecord {
	rec := domain.CreditRecord{
		SessionID:   sessionID,
		Operator:    g.operator.Name,
		ServerNo:    cmd.ServerNo,
		ProductName: name,
		PLU:         cmd.PLU,
		Quantity:    cmd.Quantity,
		Status:      domain.CreditSent,
		Message:     orDefault(reply.Message, "Credit sent"),
	}
	if g.ledger == nil {
		return rec
	}
	saved, err := g.ledger.Record(ctx, rec)
	if err != nil {
		g.logger.WithError(err).Warn("could not record credit", "plu", cmd.PLU)
		return rec
	}
	return saved
}

func (g *GatewayService) recordCancellation(ctx context.Context, sessionID, name string, credit domain.CreditRecord, reply domain.MiddlewareReply) {
	_, err := g.ledger.Record(ctx, domain.CreditRecord{
		SessionID:      sessionID,
		Operator:       g.operator.Name,
		ServerNo:       credit.ServerNo,
		ProductName:    "CANCELLED - " + name,
		PLU:            credit.PLU,
		Quantity:       1,
		Status:         domain.CreditCancelled,
		IsCancellation: true,
		Message:        orDefault(reply.Message, "Cancelled after POS decrement"),
	})
	if err != nil {
		g.logger.WithError(err).Warn("could not record cancellation", "credit", credit.ID)
	}
}

func (g *GatewayService) ensureOperator() error {
	if !g.operator.Barman {
		return domain.ErrAuthorizationDenied
	}
	if g.operator.ServerNo <= 0 {
		return domain.ErrMissingServerNo
	}
	return nil
}

func (g *GatewayService) cocktail(productID int64) (*domain.Product, string) {
	if g.catalog == nil {
		return nil, fmt.Sprintf("Cocktail product %d not found", productID)
	}
	p, err := g.catalog.Product(productID)
	if err != nil {
		return nil, fmt.Sprintf("Cocktail product %d not found", productID)
	}
	if !p.Composite {
		return nil, fmt.Sprintf("Product %q is not a cocktail", p.Label())
	}
	if len(p.Ingredients) == 0 {
		return nil, fmt.Sprintf("No ingredients found for cocktail %q", p.Label())
	}
	return p, ""
}

func failed(msg string) domain.RemoteResult {
	return domain.RemoteResult{Success: false, Message: msg}
}

// describe turns a middleware failure into an operator-facing message.
func describe(err error) string {
	var te *domain.TransportError
	if !errors.As(err, &te) {
		return err.Error()
	}
	switch te.Code {
	case domain.TransportConnection:
		return "Cannot reach the Hart96 middleware. Check that it is running and reachable."
	case domain.TransportTimeout:
		return "Timeout while talking to the Hart96 middleware"
	case domain.TransportHTTP:
		return fmt.Sprintf("HTTP error %d: %s", te.Status, te.Message)
	case domain.TransportCircuitOpen:
		return "Hart96 middleware temporarily disabled after repeated failures"
	default:
		return orDefault(te.Message, te.Error())
	}
}

func replyPayload(r domain.MiddlewareReply) string {
	if r.Raw != "" {
		return r.Raw
	}
	return r.Message
}
