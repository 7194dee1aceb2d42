package domain

import (
	"context"
	"time"
)

// Authorizer gates dispatch to operators allowed to pour.
type Authorizer interface {
	IsAuthorized(ctx context.Context) bool
}

// DispenserGateway is the remote side of the dispenser: it grants and
// withdraws credits on behalf of the current operator and session.
type DispenserGateway interface {
	SendIngredients(ctx context.Context, productID int64, quantity int, serverLabel string) (RemoteResult, error)
	SendCredit(ctx context.Context, item DispatchItem) (RemoteResult, error)
	CancelCompositeCredits(ctx context.Context, sessionID string, productID int64, quantity int) (RemoteResult, error)
	CancelSimpleCredits(ctx context.Context, sessionID, code string, quantity int, displayName string) (RemoteResult, error)
	ProbeConnectivity(ctx context.Context) (ProbeResult, error)
}

// Severity of a user notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityDanger  Severity = "danger"
)

// Notifier delivers one-way feedback to the operator.
type Notifier interface {
	Notify(message string, severity Severity)
}

// EventSink receives structured dispatch and cancellation events.
type EventSink interface {
	Emit(e Event)
}

// Sign is the direction of a credit sent to the middleware.
type Sign string

const (
	SignGrant  Sign = "+"
	SignRevoke Sign = "-"
)

// CreditCommand is one credit order understood by the middleware.
type CreditCommand struct {
	ServerNo int    `json:"server_no"`
	PLU      string `json:"plu_no"`
	Sign     Sign   `json:"sign"`
	Quantity int    `json:"quantity"`
}

// MiddlewareReply is a successful middleware answer.
type MiddlewareReply struct {
	Message string         `json:"message"`
	Raw     string         `json:"raw,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// MiddlewareClient talks to the dispenser middleware. Rejections and
// transport failures come back as *TransportError.
type MiddlewareClient interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SendCredit(ctx context.Context, cmd CreditCommand) (MiddlewareReply, error)
	Status(ctx context.Context) (ProbeResult, error)
}

// CreditStatus is the lifecycle state of a ledger entry.
type CreditStatus string

const (
	CreditSent      CreditStatus = "sent"
	CreditCancelled CreditStatus = "cancelled"
)

// CreditRecord is one ledger entry.
type CreditRecord struct {
	ID             string       `json:"id"`
	SessionID      string       `json:"session_id"`
	Operator       string       `json:"operator,omitempty"`
	ServerNo       int          `json:"server_no"`
	ProductName    string       `json:"product_name"`
	PLU            string       `json:"plu_no"`
	Quantity       int          `json:"quantity"`
	Remaining      int          `json:"remaining"`
	Status         CreditStatus `json:"status"`
	IsCancellation bool         `json:"is_cancellation,omitempty"`
	Message        string       `json:"message,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
}

// CreditLedger tracks granted credits for the lifetime of a session.
// Record assigns the id, the creation time and, for sent credits, the
// remaining units. ActiveCredits returns sent credits with units left,
// newest first; a non-positive limit means no limit. CancelUnit withdraws one
// unit and flips the credit to cancelled when none are left.
type CreditLedger interface {
	Record(ctx context.Context, rec CreditRecord) (CreditRecord, error)
	ActiveCredits(ctx context.Context, sessionID, plu string, limit int) ([]CreditRecord, error)
	CancelUnit(ctx context.Context, id string, at time.Time, response string) (CreditRecord, error)
	List(ctx context.Context, sessionID string) ([]CreditRecord, error)
}

// ConfigLoader loads runtime configuration from a directory.
type ConfigLoader interface {
	Load(dir string) (Config, error)
}

// CatalogLoader loads product reference data.
type CatalogLoader interface {
	Load(path string) (*Catalog, error)
}
