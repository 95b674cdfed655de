package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core/notification"
)

type notificationApi struct {
	svc      *notification.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service, validate *validator.Validate) {
	api := notificationApi{svc: svc, validate: validate}

	ng := g.Group("/notifications", jwt)
	ng.POST("", api.create)
	ng.GET("", api.query)
}

func (api *notificationApi) create(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	var data notification.NewNotification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.NotifyUser(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "notifying user")
	}
	return ctx.JSON(http.StatusCreated, n)
}

// query lists the notifications of ?user_id, defaulting to the caller's own.
func (api *notificationApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		userID = actor.ID
	}

	ns, err := api.svc.ListForUser(ctx.Request().Context(), actor, userID)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}
