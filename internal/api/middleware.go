package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

// AuthMiddleware handles API key authentication and user sessions
type AuthMiddleware struct {
	repo  storage.Repository
	users *services.UserService
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(repo storage.Repository, users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{repo: repo, users: users}
}

// Authenticate verifies the project API key.
// The key is read from the apikey or X-API-Key header, from Authorization
// when it does not carry a user token, or from the apikey query parameter
// (browsers cannot set headers on websocket upgrades).
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondError(w, http.StatusUnauthorized, "missing_api_key", "provide the apikey or X-API-Key header")
			return
		}

		client, err := m.repo.GetClientByApiKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to lookup api client", "error", err, "key_prefix", models.MaskKey(apiKey))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		if client == nil {
			slog.Warn("invalid api key attempt", "key_prefix", models.MaskKey(apiKey), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_api_key", "the provided api key is not valid")
			return
		}

		if !client.IsActive {
			slog.Warn("inactive client attempt", "client", client.Name, "key_prefix", client.MaskedKey())
			respondError(w, http.StatusUnauthorized, "client_inactive", "this api key has been deactivated")
			return
		}

		// Update last_used_at asynchronously (don't block request)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.repo.UpdateClientLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update client last_used_at", "error", err, "client", client.Name)
			}
		}()

		ctx := ContextWithClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentifyUser attaches the claims of a bearer user token, if any.
// A present but invalid token is rejected rather than treated as anonymous.
func (m *AuthMiddleware) IdentifyUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if !looksLikeJWT(token) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.users.Authenticate(r.Context(), token)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequirePermission returns middleware that checks for specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())
			if client == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			if !client.HasPermission(permission) {
				slog.Warn("permission denied",
					"client", client.Name,
					"required", permission,
					"has", client.Permissions,
				)
				respondError(w, http.StatusForbidden, "forbidden",
					"client does not have required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminOr lets through clients holding permission, or signed-in
// users whose stored account is an admin. The account is read on every
// request so promotions and demotions apply to tokens already issued.
func (m *AuthMiddleware) RequireAdminOr(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ClientFromContext(r.Context()).HasPermission(permission) {
				next.ServeHTTP(w, r)
				return
			}

			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			u, err := m.users.Get(r.Context(), claims.UID)
			if err != nil {
				if se, ok := services.AsServiceError(err); ok && se.Code == services.ErrorNotFound {
					respondError(w, http.StatusUnauthorized, "unauthorized", "account no longer exists")
					return
				}
				respondServiceError(w, err)
				return
			}
			if !u.IsAdmin {
				slog.Warn("admin access denied", "user_id", u.ID, "path", r.URL.Path)
				respondError(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// privileged reports whether the caller may see drafts and inactive items.
func (m *AuthMiddleware) privileged(r *http.Request, permission string) bool {
	if ClientFromContext(r.Context()).HasPermission(permission) {
		return true
	}
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return false
	}
	u, err := m.users.Get(r.Context(), claims.UID)
	return err == nil && u.IsAdmin
}

// extractAPIKey extracts API key from request headers
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("apikey"); key != "" {
		return key
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token := bearerToken(r); token != "" && !looksLikeJWT(token) {
		return token
	}
	return r.URL.Query().Get("apikey")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(h)
}

// looksLikeJWT distinguishes user tokens from raw API keys.
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
