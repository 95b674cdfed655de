package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core/exam"
)

type examApi struct {
	svc      *exam.Service
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, validate *validator.Validate) {
	api := examApi{svc: svc, validate: validate}

	eg := g.Group("/exams", jwt)
	eg.POST("", api.create)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)

	eg.POST("/:id/participants", api.addParticipant)
	eg.GET("/:id/participants", api.queryParticipants)

	eg.POST("/:id/questions", api.createQuestion)
	eg.GET("/:id/questions", api.queryQuestions)

	eg.GET("/:id/performances", api.queryPerformances)
	eg.GET("/:id/performances/:user_id", api.retrievePerformance)
}

func (api *examApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data exam.NewExam
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ex, err := api.svc.CreateExam(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) query(ctx echo.Context) error {
	filter := new(exam.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Exam{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	exams, err := api.svc.QueryExams(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ex, err := api.svc.GetExam(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) addParticipant(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data exam.NewParticipant
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParticipant")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.AddParticipant(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding participant")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *examApi) queryParticipants(ctx echo.Context) error {
	participants, err := api.svc.ListParticipants(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing participants")
	}
	if participants == nil {
		participants = []exam.Participant{}
	}
	return ctx.JSON(http.StatusOK, participants)
}

func (api *examApi) createQuestion(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data exam.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	data.ExamID = ctx.Param("id")
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuestion(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *examApi) queryQuestions(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	questions, err := api.svc.ListQuestions(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if questions == nil {
		questions = []exam.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *examApi) queryPerformances(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	perfs, err := api.svc.ListPerformances(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing performances")
	}
	if perfs == nil {
		perfs = []exam.Performance{}
	}
	return ctx.JSON(http.StatusOK, perfs)
}

func (api *examApi) retrievePerformance(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	perf, err := api.svc.GetPerformance(ctx.Request().Context(), actor, ctx.Param("user_id"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting performance")
	}
	return ctx.JSON(http.StatusOK, perf)
}
