package observability

import (
	"context"

	"github.com/google/uuid"
)

type operationIDKey struct{}

// NewOperationID returns a fresh random identifier.
func NewOperationID() string {
	return uuid.NewString()
}

// ContextWithOperationID attaches an operation ID to ctx.
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id)
}

// OperationIDFromContext extracts the operation ID, or "" when none is set.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EnsureOperationID returns ctx carrying an operation ID, creating one if needed.
func EnsureOperationID(ctx context.Context) (context.Context, string) {
	if id := OperationIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewOperationID()
	return ContextWithOperationID(ctx, id), id
}
