package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterApi struct {
	svc *roster.Service
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *roster.Service) {
	api := rosterApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent, staffMiddleware())
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent, staffMiddleware())
	sg.DELETE("/:id", api.destroyStudent, adminMiddleware())

	tg := g.Group("/teachers", jwt)
	tg.POST("", api.createTeacher, staffMiddleware())
	tg.GET("", api.queryTeachers)
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher, staffMiddleware())
	tg.DELETE("/:id", api.destroyTeacher, adminMiddleware())

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, staffMiddleware())
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, staffMiddleware())
	cg.DELETE("/:id", api.destroyClass, adminMiddleware())

	jg := g.Group("/subjects", jwt)
	jg.POST("", api.createSubject, staffMiddleware())
	jg.GET("", api.querySubjects)
	jg.GET("/:id", api.retrieveSubject)
	jg.PUT("/:id", api.updateSubject, staffMiddleware())
	jg.DELETE("/:id", api.destroySubject, adminMiddleware())
}

// Students

func (api *rosterApi) createStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) retrieveStudent(ctx echo.Context) error {
	s, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) updateStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teachers

func (api *rosterApi) createTeacher(ctx echo.Context) error {
	var data roster.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	t, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *rosterApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []roster.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *rosterApi) retrieveTeacher(ctx echo.Context) error {
	t, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *rosterApi) updateTeacher(ctx echo.Context) error {
	var data roster.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	t, err := api.svc.UpdateTeacher(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *rosterApi) destroyTeacher(ctx echo.Context) error {
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classes

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	c, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *rosterApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []roster.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) retrieveClass(ctx echo.Context) error {
	c, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *rosterApi) updateClass(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	c, err := api.svc.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *rosterApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *rosterApi) createSubject(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []roster.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *rosterApi) retrieveSubject(ctx echo.Context) error {
	s, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) updateSubject(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
