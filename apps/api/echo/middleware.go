package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/user"
)

// requireRoles lets the request through only when the caller has one of roles.
// It must run after bearerAuth.
func requireRoles(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := contextActor(ctx)
			if err != nil {
				return err
			}
			if !policy.HasRole(actor, roles...) {
				return policy.ErrForbidden
			}
			return next(ctx)
		}
	}
}

// authorize checks that the caller may perform op on res.
func authorize(ctx echo.Context, op policy.Operation, res policy.Resource) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	return policy.CanAccess(actor, op, res)
}
