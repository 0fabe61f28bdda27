package api

import (
	"context"

	"github.com/terra-clan/wellness-hub/internal/auth"
	"github.com/terra-clan/wellness-hub/internal/models"
)

type contextKey string

const (
	clientContextKey contextKey = "api_client"
	claimsContextKey contextKey = "user_claims"
)

// ClientFromContext extracts ApiClient from context
func ClientFromContext(ctx context.Context) *models.ApiClient {
	client, ok := ctx.Value(clientContextKey).(*models.ApiClient)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient adds ApiClient to context
func ContextWithClient(ctx context.Context, client *models.ApiClient) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// ClaimsFromContext returns the signed-in user's claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// ContextWithClaims adds user claims to context
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// userID is empty for anonymous requests.
func userID(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UID
	}
	return ""
}
