package application

import "github.com/google/uuid"

// NewSessionID issues the id of a POS session. Credits are attributed to it
// and cancellations only ever look inside it.
func NewSessionID() string { return "SES-" + uuid.NewString() }

// NewOrderID issues an order id.
func NewOrderID() string { return "ORD-" + uuid.NewString()[:8] }
