package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core/progress"
)

type progressApi struct {
	svc      progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := progressApi{
		svc:      deps.ProgressSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/progress", jwt)
	pg.GET("/:courseID", api.retrieve)
	pg.POST("/lesson", api.markLesson)
	pg.POST("/quiz", api.recordQuiz)
	pg.GET("/:courseID/certificate", api.certificate)
}

// Handlers

func (api *progressApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("courseID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) markLesson(ctx echo.Context) error {
	var data progress.MarkLessonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkLessonRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.MarkLesson(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) recordQuiz(ctx echo.Context) error {
	var data progress.QuizResultRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizResultRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.RecordQuiz(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) certificate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	cert, err := api.svc.GetCertificate(ctx.Request().Context(), claims.Subject, ctx.Param("courseID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}
