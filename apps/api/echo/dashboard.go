package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core/dashboard"
	"github.com/sistemanotas/notas/core/user"
)

type dashboardApi struct {
	svc *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &dashboardApi{svc: deps.DashboardSvc}

	dg := g.Group("/dashboard", authn, requireRoles(user.RoleAdmin))
	dg.GET("/summary", api.summary)
}

func (api *dashboardApi) summary(ctx echo.Context) error {
	sum, err := api.svc.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}
