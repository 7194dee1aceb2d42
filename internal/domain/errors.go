package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorizationDenied = errors.New("access denied: reserved for barmen")
	ErrNoActiveSession     = errors.New("no active session")
	ErrNoTransport         = errors.New("no remote transport available")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrOrderFinalized      = errors.New("order is finalized")
	ErrLineNotFound        = errors.New("line not found")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrNoCreditsToCancel   = errors.New("no active credit to cancel")
	ErrCreditNotFound      = errors.New("credit not found")
	ErrMissingServerNo     = errors.New("operator has no dispenser server number")
)

// TransportCode classifies a failed middleware exchange.
type TransportCode string

const (
	TransportConnection  TransportCode = "CONNECTION"
	TransportTimeout     TransportCode = "TIMEOUT"
	TransportHTTP        TransportCode = "HTTP"
	TransportRejected    TransportCode = "REJECTED"
	TransportCircuitOpen TransportCode = "CIRCUIT_OPEN"
)

// TransportError reports a failed exchange with the dispenser middleware.
type TransportError struct {
	Op      string
	Code    TransportCode
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Op, e.Code, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportCode reports whether err carries a TransportError with code.
func IsTransportCode(err error, code TransportCode) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Code == code
}
