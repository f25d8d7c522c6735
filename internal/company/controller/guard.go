package controller

import (
	"context"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
)

// Guard checks company roles. Roles are looked up on every call and never cached.
type Guard struct {
	roles   *RoleRegistry
	metrics *metrics.Metrics
}

func NewGuard(roles *RoleRegistry, m *metrics.Metrics) *Guard {
	return &Guard{roles: roles, metrics: m}
}

// RequireRole fails with PermissionDenied unless actorID holds one of the
// allowed roles in the company. The actor's membership is returned on success.
func (g *Guard) RequireRole(ctx context.Context, companyID, actorID int64, allowed ...models.Role) (*models.Membership, error) {
	membership, err := g.roles.GetRole(ctx, companyID, actorID)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		for _, role := range allowed {
			if membership.Role == role {
				return membership, nil
			}
		}
	}

	g.metrics.Denied()
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		names = append(names, string(role))
	}
	return nil, e.PermissionDenied(names...)
}
