package auth

import (
	"context"

	"github.com/dukerupert/familyhub/internal/model"
)

type contextKey struct{}

// AuthContext identifies the profile a request acts as.
type AuthContext struct {
	ProfileID string
	Name      string
	Role      model.Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func ProfileID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.ProfileID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}

// ForProfile builds the context of a logged-in profile.
func ForProfile(p model.Profile) AuthContext {
	return AuthContext{ProfileID: p.ID, Name: p.Name, Role: p.Role}
}
