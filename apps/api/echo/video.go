package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/media"
)

type videoApi struct {
	svc *media.Service
}

func registerVideoAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *media.Service) {
	api := videoApi{svc: svc}

	vg := g.Group("/videos", jwt)
	vg.POST("", api.upload)
	vg.GET("/:name", api.retrieve)
}

// upload expects a multipart form with the "tutorial_name" and "file" fields.
func (api *videoApi) upload(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	name := ctx.FormValue("tutorial_name")
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "this field is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	if err = api.svc.Upload(ctx.Request().Context(), actor, name, file); err != nil {
		return errors.Wrap(err, "uploading video")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"tutorial_name": core.CleanString(name)})
}

func (api *videoApi) retrieve(ctx echo.Context) error {
	name := ctx.Param("name")
	rc, err := api.svc.Open(ctx.Request().Context(), name)
	if err != nil {
		return errors.Wrap(err, "opening video")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()
	return ctx.Stream(http.StatusOK, media.ContentType(name), rc)
}
