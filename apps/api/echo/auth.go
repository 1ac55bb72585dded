package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/auth"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/user"
)

var (
	contextActorKey = "actor"
	contextUserKey  = "user"

	errMissingToken = core.NewError(core.ErrUnauthenticated, "Token no proporcionado")
	errInvalidToken = core.NewError(core.ErrUnauthenticated, "Token inválido")
	errExpiredToken = core.NewError(core.ErrUnauthenticated, "Token expirado")
	errUnknownUser  = core.NewError(core.ErrUnauthenticated, "Usuario no encontrado")
)

// bearerAuth verifies the `Authorization: Bearer <token>` header and stores the caller as a *policy.Actor.
func bearerAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if header == "" {
				return errMissingToken
			}
			scheme, token, found := strings.Cut(header, " ")
			token = strings.TrimSpace(token)
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return errInvalidToken
			}

			ident, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return errExpiredToken
				}
				return errInvalidToken
			}

			ctx.Set(contextActorKey, &policy.Actor{ID: ident.UserID, Role: ident.Role, Email: ident.Email})
			return next(ctx)
		}
	}
}

func contextActor(ctx echo.Context) (*policy.Actor, error) {
	if actor, ok := ctx.Get(contextActorKey).(*policy.Actor); ok && actor != nil {
		return actor, nil
	}
	return nil, policy.ErrUnauthenticated
}

// contextUser loads the stored record of the caller. A token whose user was deleted no longer authenticates.
func contextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	actor, err := contextActor(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), actor.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return user.User{}, errUnknownUser
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
