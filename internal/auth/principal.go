// Package auth implements judgecore's session/authentication gatekeeper:
// opaque-token sessions backed by Redis, SSO token exchange, role-gated
// authorization, and login rate limiting.
package auth

import "context"

// Principal is the authenticated identity attached to a request context
// after session resolution.
type Principal struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	AdminType string `json:"admin_type"`
}

// SuperAdminRole is the role that unconditionally bypasses role gates.
const SuperAdminRole = "Super Admin"

type principalCtxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext extracts the Principal attached by the Authorizer
// middleware, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok
}
