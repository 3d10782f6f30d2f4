package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/affiliate"
)

type affiliateApi struct {
	svc      affiliate.Service
	validate *validator.Validate
}

func registerAffiliateAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := affiliateApi{
		svc:      deps.AffiliateSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/affiliate")

	// click tracking is hit from referral links; no auth
	ag.POST("/click", api.trackClick)

	// authed endpoints
	jg := ag.Group("", jwt)
	jg.POST("/code", api.issueCode)
	jg.GET("/stats", api.stats)
	jg.GET("/stats/summary", api.statsSummary)

	// conversions are recorded server-side on capture; the endpoint exists for
	// back-office replays only
	jg.POST("/conversion", api.recordConversion, adminMiddleware())
}

// Handlers

func (api *affiliateApi) issueCode(ctx echo.Context) error {
	var data IssueCodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IssueCodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	issued, err := api.svc.IssueCode(ctx.Request().Context(), claims.Subject, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, issued)
}

func (api *affiliateApi) trackClick(ctx echo.Context) error {
	var data TrackClickRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TrackClickRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.TrackClick(ctx.Request().Context(), data.Code, data.CourseID); err != nil {
		return err
	}
	affiliateClicksTotal.Inc()
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "click recorded"})
}

func (api *affiliateApi) recordConversion(ctx echo.Context) error {
	var data RecordConversionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordConversionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RecordConversion(ctx.Request().Context(), data.Code, data.CourseID, data.Amount); err != nil {
		return err
	}
	affiliateConversionsTotal.Inc()
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "conversion recorded"})
}

func (api *affiliateApi) stats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.StatsForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying affiliate stats")
	}
	if stats == nil {
		stats = []affiliate.CourseStats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *affiliateApi) statsSummary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	agg, err := api.svc.AggregatedStatsForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "aggregating affiliate stats")
	}
	return ctx.JSON(http.StatusOK, agg)
}

type (
	IssueCodeRequest struct {
		CourseID string `json:"course_id" validate:"required"`
	}

	TrackClickRequest struct {
		CourseID string `json:"course_id" validate:"required"`
		Code     string `json:"code" validate:"required"`
	}

	RecordConversionRequest struct {
		CourseID string          `json:"course_id" validate:"required"`
		Code     string          `json:"code" validate:"required"`
		Amount   decimal.Decimal `json:"amount"`
	}
)

func (ic *IssueCodeRequest) Validate(validate *validator.Validate) error {
	ic.CourseID = core.CleanString(ic.CourseID)
	return validate.Struct(ic)
}

func (tc *TrackClickRequest) Validate(validate *validator.Validate) error {
	tc.CourseID = core.CleanString(tc.CourseID)
	tc.Code = core.CleanString(tc.Code)
	return validate.Struct(tc)
}

func (rc *RecordConversionRequest) Validate(validate *validator.Validate) error {
	rc.CourseID = core.CleanString(rc.CourseID)
	rc.Code = core.CleanString(rc.Code)
	return validate.Struct(rc)
}
