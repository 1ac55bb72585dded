package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

var (
	objectKey = "object"

	errObjNotFoundInCtx = errors.New("object not found in context")
	errInvalidRoleText  = "rol inválido"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &userApi{svc: deps.UserSvc, validate: deps.Validate}

	ug := g.Group("/users", authn, requireRoles(user.RoleAdmin))
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/helpers/teachers", api.teachers)
	ug.GET("/helpers/students", api.students)
	ug.GET("/:id", api.retrieve, api.objectMiddleware)
	ug.PUT("/:id", api.update, api.objectMiddleware)
	ug.DELETE("/:id", api.destroy)
}

// objectMiddleware loads the user of the `:id` path parameter into the context.
func (api *userApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramID(ctx, "id")
		if err != nil {
			return err
		}
		usr, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return err
		}
		if err = authorize(ctx, policy.OpRead, policy.Resource{Kind: policy.KindUser, OwnerID: usr.ID}); err != nil {
			return err
		}
		ctx.Set(objectKey, usr)
		return next(ctx)
	}
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	var roleFilter query.Filter
	if role := user.Role(ctx.QueryParam("role")); role != "" {
		if !role.IsValid() {
			return core.NewFieldError("role", errInvalidRoleText)
		}
		roleFilter = query.Eq(query.FieldRole, string(role))
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, query.Users); err != nil {
		return err
	}

	filter := query.And(policy.ScopeFilter(actor, query.Users), roleFilter, bindSearch(ctx))
	users, pagination, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, UserListResponse{Users: users, Pagination: pagination})
}

func (api *userApi) teachers(ctx echo.Context) error {
	return api.listByRole(ctx, user.RoleTeacher)
}

func (api *userApi) students(ctx echo.Context) error {
	return api.listByRole(ctx, user.RoleStudent)
}

func (api *userApi) listByRole(ctx echo.Context, role user.Role) error {
	users, err := api.svc.ListByRole(ctx.Request().Context(), role)
	if err != nil {
		return errors.Wrapf(err, "listing %s users", role)
	}
	briefs := make([]user.Brief, 0, len(users))
	for _, usr := range users {
		briefs = append(briefs, usr.Brief())
	}
	return ctx.JSON(http.StatusOK, briefs)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get(objectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get(objectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := authorize(ctx, policy.OpUpdate, policy.Resource{Kind: policy.KindUser, OwnerID: usr.ID}); err != nil {
		return err
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpDelete, policy.Resource{Kind: policy.KindUser, OwnerID: id}); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor.ID, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Usuario eliminado correctamente"})
}

type UserListResponse struct {
	Users      []user.User      `json:"users"`
	Pagination query.Pagination `json:"pagination"`
}
