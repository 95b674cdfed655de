package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core/exam"
)

type submissionApi struct {
	svc      *exam.Service
	validate *validator.Validate
}

// GradedResponse is a submission together with the learner's recomputed exam performance.
type GradedResponse struct {
	Submission  exam.Submission  `json:"submission"`
	Performance exam.Performance `json:"performance"`
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, validate *validator.Validate) {
	api := submissionApi{svc: svc, validate: validate}

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.create)
	sg.PUT("/:id/mark", api.mark)
}

func (api *submissionApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data exam.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, perf, err := api.svc.CreateSubmission(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, GradedResponse{Submission: sub, Performance: perf})
}

func (api *submissionApi) mark(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data exam.MarkRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, perf, err := api.svc.MarkSubmission(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "marking submission")
	}
	return ctx.JSON(http.StatusOK, GradedResponse{Submission: sub, Performance: perf})
}
