package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/assignment"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

type assignmentApi struct {
	svc     *assignment.Service
	userSvc user.Service
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assignment.Service, userSvc user.Service) {
	api := assignmentApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/assignments", jwt)
	ag.POST("", api.create, staffMiddleware())
	ag.GET("", api.query, staffMiddleware())
	ag.DELETE("", api.destroy, staffMiddleware())

	// teachers discover their own recordable class/subject pairs here
	g.GET("/teachers/me/assignments", api.listMine, jwt)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	assignments, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.TeacherID, data.ClassID, data.SubjectID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) listMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var teacherID string
	switch {
	case ctxUsr.IsTeacher():
		if ctxUsr.TeacherID == "" {
			return attendance.ErrTeacherProfileMissing
		}
		teacherID = ctxUsr.TeacherID
	case ctxUsr.IsAdmin() || ctxUsr.IsCoordinator():
		// staff inspect any teacher's pairs by passing the id explicitly
		if teacherID = ctx.QueryParam("teacher_id"); teacherID == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "this field is required"})
		}
	default:
		return errHttpForbidden
	}

	assignments, err := api.svc.ListForTeacher(ctx.Request().Context(), teacherID)
	if err != nil {
		return errors.Wrap(err, "listing teacher assignments")
	}
	if assignments == nil {
		assignments = []assignment.TeacherAssignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}
