package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

type attendanceApi struct {
	svc     *attendance.Service
	userSvc user.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, userSvc user.Service) {
	api := attendanceApi{
		svc:     svc,
		userSvc: userSvc,
	}

	ag := g.Group("/attendances", jwt)
	ag.GET("", api.query)
	ag.POST("", api.upsert)
	ag.POST("/bulk", api.bulk)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy, adminMiddleware())

	ag.GET("/stats/students/:id", api.studentStats)
	ag.GET("/report", api.classReport, staffMiddleware())
}

// Handlers

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}

	records, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// upsert records a single attendance fact. The same endpoint serves first
// writes and corrections; a repeat write for the tuple updates in place.
func (api *attendanceApi) upsert(ctx echo.Context) error {
	var data attendance.WriteRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WriteRecord")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.Upsert(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) bulk(ctx echo.Context) error {
	var data BulkAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkAttendanceRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.ApplyBatch(ctx.Request().Context(), data.Attendances, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.UpdateByID(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteByID(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) studentStats(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	stats, err := api.svc.StudentStats(ctx.Request().Context(), ctx.Param("id"), *filter)
	if err != nil {
		return errors.Wrap(err, "aggregating student stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) classReport(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	report, err := api.svc.ClassReport(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "aggregating class report")
	}
	return ctx.JSON(http.StatusOK, report)
}

type BulkAttendanceRequest struct {
	Attendances []attendance.WriteRecord `json:"attendances"`
}
