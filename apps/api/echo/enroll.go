package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core/enroll"
)

type enrollApi struct {
	svc      enroll.Service
	validate *validator.Validate
}

func registerEnrollAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollApi{
		svc:      deps.EnrollSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.begin)
	eg.POST("/capture", api.capture)
	eg.GET("", api.list)
}

// Handlers

func (api *enrollApi) begin(ctx echo.Context) error {
	var data enroll.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Begin(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *enrollApi) capture(ctx echo.Context) error {
	var data enroll.CaptureRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CaptureRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	// non-admins may only capture their own orders
	userID := claims.Subject
	if claims.IsAdmin {
		userID = ""
	}
	enr, err := api.svc.Capture(ctx.Request().Context(), userID, data.ProviderRef)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	enrs, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}
