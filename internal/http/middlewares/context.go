package middlewares

import (
	"context"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

type ctxKey string

const (
	// ctxPrincipalKey guarda el principal autenticado
	ctxPrincipalKey ctxKey = "principal"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithPrincipal inyecta el principal en el contexto
func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetPrincipal obtiene el principal autenticado del contexto.
// ok es false si el request llegó sin identidad establecida.
func GetPrincipal(ctx context.Context) (identity.Principal, bool) {
	if v := ctx.Value(ctxPrincipalKey); v != nil {
		if p, ok := v.(identity.Principal); ok {
			return p, true
		}
	}
	return identity.Principal{}, false
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
