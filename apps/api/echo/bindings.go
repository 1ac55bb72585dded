package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
	searchParam   = "search"

	errInvalidIDText = "identificador inválido"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-createdAt` against the sortable fields of entity.
func (ord *Ordering) Bind(ctx echo.Context, entity query.Entity) error {
	ords, err := query.ParseOrdering(entity, ctx.QueryParam(orderingParam))
	if err != nil {
		return err
	}
	ord.Orderings = ords
	return nil
}

func bindPage(ctx echo.Context) query.Page {
	return query.NewPage(ctx.QueryParam(pageParam), ctx.QueryParam(limitParam))
}

func bindSearch(ctx echo.Context) query.Filter {
	return query.Search(ctx.QueryParam(searchParam))
}

// paramID parses the positive integer path parameter name.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, core.NewFieldError(name, errInvalidIDText)
	}
	return id, nil
}

// queryID parses the optional positive integer query parameter name. It returns 0 when absent.
func queryID(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, core.NewFieldError(name, errInvalidIDText)
	}
	return id, nil
}

// messageResponse is the body of the endpoints that only confirm an action.
type messageResponse struct {
	Message string `json:"message"`
}
