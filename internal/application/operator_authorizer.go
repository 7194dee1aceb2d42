package application

import (
	"context"

	"github.com/pourline/pourline/internal/domain"
)

// OperatorAuthorizer lets only barmen pour.
type OperatorAuthorizer struct {
	operator domain.Operator
}

// NewOperatorAuthorizer creates an authorizer for the configured operator.
func NewOperatorAuthorizer(op domain.Operator) *OperatorAuthorizer {
	return &OperatorAuthorizer{operator: op}
}

func (a *OperatorAuthorizer) IsAuthorized(_ context.Context) bool {
	return a.operator.Barman
}
