package models

import (
	"strings"
	"time"
)

// Client roles. The anon key ships with the public front-end; the service
// key is reserved for back-office tooling.
const (
	RoleAnon    = "anon"
	RoleService = "service"
)

// Permissions granted to the anon role.
var AnonPermissions = []string{
	"auth:*",
	"resources:read",
	"categories:read",
	"pages:read",
	"diagnostics:*",
	"favorites:*",
	"realtime:read",
}

// ApiClient is a holder of a project API key.
type ApiClient struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	ApiKey      string     `json:"-"`
	IsActive    bool       `json:"isActive"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

// HasPermission checks a "scope:action" permission. A grant of "scope:*"
// covers every action of the scope and "*" covers everything.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}
	scope, _, _ := strings.Cut(required, ":")
	for _, p := range c.Permissions {
		switch {
		case p == "*", p == required:
			return true
		case strings.HasSuffix(p, ":*") && strings.TrimSuffix(p, ":*") == scope:
			return true
		}
	}
	return false
}

// MaskedKey returns a log-safe prefix of the key.
func (c *ApiClient) MaskedKey() string {
	return MaskKey(c.ApiKey)
}

// MaskKey returns the first 8 characters of key followed by an ellipsis.
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
