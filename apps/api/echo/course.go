package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/course"
)

type courseApi struct {
	svc      course.Service
	fx       CurrencyConverter
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		fx:       deps.Forex,
		validate: deps.Validate,
	}

	cg := g.Group("/courses")

	// public catalog
	cg.GET("", api.queryPublished)
	cg.GET("/:slug", api.retrieve)

	// management endpoints
	mg := cg.Group("", jwt, instructorOrAdminMiddleware())
	mg.POST("", api.create)
	mg.GET("/all", api.query)
	mg.PUT("/:id", api.update)
	mg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) queryPublished(ctx echo.Context) error {
	courses, err := api.svc.QueryPublished(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying published courses")
	}

	resp := make([]CourseResponse, 0, len(courses))
	cur := displayCurrency(ctx)
	for _, crs := range courses {
		resp = append(resp, api.toResponse(ctx, crs, cur))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.toResponse(ctx, crs, displayCurrency(ctx)))
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CourseResponse is a catalog course, optionally carrying its price expressed
// in the visitor's requested display currency (`?currency=`).
type CourseResponse struct {
	course.Course
	DisplayPrice    *decimal.Decimal `json:"display_price,omitempty"`
	DisplayCurrency string           `json:"display_currency,omitempty"`
}

func displayCurrency(ctx echo.Context) string {
	return strings.ToUpper(core.CleanString(ctx.QueryParam("currency")))
}

// toResponse attaches a display price when a conversion is requested and
// possible; a failed conversion just omits it.
func (api *courseApi) toResponse(ctx echo.Context, crs course.Course, cur string) CourseResponse {
	resp := CourseResponse{Course: crs}
	if cur == "" || api.fx == nil || strings.EqualFold(cur, crs.Currency) {
		return resp
	}
	converted, err := api.fx.Convert(ctx.Request().Context(), crs.Price, crs.Currency, cur)
	if err != nil {
		return resp
	}
	resp.DisplayPrice = &converted
	resp.DisplayCurrency = cur
	return resp
}
