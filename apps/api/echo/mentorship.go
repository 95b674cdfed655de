package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core/mentorship"
)

type mentorshipApi struct {
	svc      *mentorship.Service
	validate *validator.Validate
}

func registerMentorshipAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *mentorship.Service, validate *validator.Validate) {
	api := mentorshipApi{svc: svc, validate: validate}

	mg := g.Group("/mentorships", jwt)
	mg.POST("", api.create)
	mg.GET("", api.query)
	mg.PUT("/:id/close", api.close)
}

func (api *mentorshipApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data mentorship.NewMentorship
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMentorship")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Request(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "requesting mentorship")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// query lists the caller's mentorships; ?active=true keeps the open ones only.
func (api *mentorshipApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	activeOnly, _ := strconv.ParseBool(ctx.QueryParam("active"))

	ms, err := api.svc.ListForTutor(ctx.Request().Context(), actor, activeOnly)
	if err != nil {
		return errors.Wrap(err, "listing mentorships")
	}
	if ms == nil {
		ms = []mentorship.Mentorship{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *mentorshipApi) close(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Close(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing mentorship")
	}
	return ctx.JSON(http.StatusOK, m)
}
