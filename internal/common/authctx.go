package common

import "context"

type ctxKey string

const operatorIDKey ctxKey = "auth/operator-id"

// WithOperatorID stores the authenticated cashier identifier on the context.
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorID extracts the authenticated cashier identifier from the context if present.
func OperatorID(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
