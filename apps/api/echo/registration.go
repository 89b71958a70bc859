package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/registration"
	"github.com/trezcool/miradi/core/user"
)

type registrationApi struct {
	svc    registration.Service
	usrSvc user.Service
}

func registerRegistrationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc registration.Service, usrSvc user.Service) {
	api := registrationApi{svc: svc, usrSvc: usrSvc}

	// student portal
	sg := g.Group("/student", jwt, studentMiddleware())
	sg.GET("/planner", api.planner)
	sg.PUT("/planner/move", api.moveItem)
	sg.POST("/planner/drag", api.startDrag)
	sg.DELETE("/planner/drag", api.endDrag)
	sg.POST("/registrations", api.submit)
	sg.GET("/registrations", api.myRegistrations)
	sg.GET("/registrations/ids", api.myRegistrationIDs)

	// staff portal
	fg := g.Group("/staff", jwt, staffMiddleware())
	fg.GET("/projects/:id/registrations", api.projectSummary)
	fg.PUT("/registrations/:id/decision", api.decide)
}

// Handlers

func (api *registrationApi) planner(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entries, err := api.svc.PlannerView(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "loading planner")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *registrationApi) moveItem(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data MoveItemRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveItemRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	if _, err := api.svc.MoveItem(claims.Subject, data.ActiveID, data.OverID); err != nil {
		if errors.Cause(err) == registration.ErrNoPlannerSession {
			return errHttpNotFound
		}
		return errors.Wrap(err, "moving planner item")
	}

	entries, err := api.svc.PlannerView(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "loading planner")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *registrationApi) startDrag(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data DragRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DragRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	if err := api.svc.StartDrag(claims.Subject, data.ID); err != nil {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *registrationApi) endDrag(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.EndDrag(claims.Subject); err != nil {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *registrationApi) submit(ctx echo.Context) error {
	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	report, err := api.svc.Submit(ctx.Request().Context(), student)
	if err != nil {
		if errors.Cause(err) == registration.ErrNoPlannerSession {
			return core.NewValidationError(registration.ErrNoPlannerSession)
		}
		return errors.Wrap(err, "submitting registration")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *registrationApi) myRegistrations(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	regs, err := api.svc.MyRegistrations(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *registrationApi) myRegistrationIDs(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ids, err := api.svc.MyRegistrationIDs(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying registration IDs")
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *registrationApi) projectSummary(ctx echo.Context) error {
	summary, err := api.svc.SummaryByProject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading project summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *registrationApi) decide(ctx echo.Context) error {
	var data DecisionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	reg, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), registration.Status(data.Decision))
	if err != nil {
		if errors.Cause(err) == registration.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, reg)
}
