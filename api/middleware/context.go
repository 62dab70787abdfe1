package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

type contextKey string

const (
	ctxEntityID contextKey = "entity_id"
	ctxRole     contextKey = "actor_role"
	ctxName     contextKey = "actor_name"
)

// Principal is the authenticated caller.
type Principal struct {
	EntityID uuid.UUID
	Role     enums.ActorRole
	Name     string
}

// WithPrincipal seeds ctx with the caller identity.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxEntityID, p.EntityID)
	ctx = context.WithValue(ctx, ctxRole, p.Role)
	return context.WithValue(ctx, ctxName, p.Name)
}

func EntityIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxEntityID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

func NameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxName).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext returns the caller set by Auth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	id, ok := EntityIDFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return Principal{EntityID: id, Role: RoleFromContext(ctx), Name: NameFromContext(ctx)}, true
}
