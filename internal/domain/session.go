package domain

import "context"

// Operator is the person working the point of sale.
type Operator struct {
	Name        string `json:"name"        yaml:"name"`
	ServerNo    int    `json:"server_no"   yaml:"server_no"`
	Barman      bool   `json:"barman"      yaml:"barman"`
	ServerLabel string `json:"server_label" yaml:"server_label"`
}

type sessionKey struct{}

// ContextWithSession attaches the POS session id to ctx so the gateway can
// attribute credits to it.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session id carried by ctx, if any.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
