package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
)

type projectApi struct {
	svc project.Service
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc project.Service) {
	api := projectApi{svc: svc}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.GET("/open", api.queryOpen)
	pg.GET("/:id", api.retrieve)

	// staff portal
	sg := g.Group("/staff/projects", jwt, staffMiddleware())
	sg.POST("", api.propose)
	sg.PUT("/:id", api.update)
	sg.PUT("/:id/status", api.setStatus)
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *projectApi) propose(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	prj, err := api.svc.Propose(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "proposing project")
	}
	return ctx.JSON(http.StatusCreated, prj)
}

func (api *projectApi) query(ctx echo.Context) error {
	filter := new(project.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []project.Project{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	prjs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if prjs == nil {
		prjs = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, prjs)
}

func (api *projectApi) queryOpen(ctx echo.Context) error {
	prjs, err := api.svc.OpenForRegistration(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying open projects")
	}
	if prjs == nil {
		prjs = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, prjs)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	prj, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding project by ID")
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) update(ctx echo.Context) error {
	prj, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding project by ID")
	}

	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(core.Validate, prj); err != nil {
		return err
	}

	prj, err = api.svc.Update(ctx.Request().Context(), prj.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	prj, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), project.Status(data.Status))
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}
