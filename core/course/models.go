package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
)

type Course struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	// AffiliateRate is the commission fraction in [0,1] paid out per referred
	// purchase; nil falls back to the configured default.
	AffiliateRate *decimal.Decimal `json:"affiliate_rate,omitempty"`
	LessonCount   int              `json:"lesson_count"`
	Published     *bool            `json:"published"`
	CreatedAt     time.Time        `json:"created_at"` // UTC
	UpdatedAt     time.Time        `json:"updated_at"` // UTC
}

// EffectiveAffiliateRate resolves the commission rate for this course,
// falling back to `def` when none is configured.
func (c Course) EffectiveAffiliateRate(def float64) decimal.Decimal {
	if c.AffiliateRate != nil {
		return *c.AffiliateRate
	}
	return decimal.NewFromFloat(def)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Slug          string           `json:"slug" validate:"required,slug"`
	Title         string           `json:"title" validate:"required"`
	Description   string           `json:"description"`
	Thumbnail     string           `json:"thumbnail" validate:"omitempty,url"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency" validate:"required,len=3,alpha"`
	AffiliateRate *decimal.Decimal `json:"affiliate_rate"`
	LessonCount   int              `json:"lesson_count" validate:"gte=0"`
	Published     *bool            `json:"published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Currency = core.CleanString(nc.Currency, true)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return validateRateAndPrice(nc.Price, nc.AffiliateRate)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Thumbnail     string           `json:"thumbnail" validate:"omitempty,url"`
	Price         *decimal.Decimal `json:"price"`
	Currency      string           `json:"currency" validate:"omitempty,len=3,alpha"`
	AffiliateRate *decimal.Decimal `json:"affiliate_rate"`
	LessonCount   *int             `json:"lesson_count"`
	Published     *bool            `json:"published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Currency = core.CleanString(uc.Currency, true)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	price := decimal.Zero
	if uc.Price != nil {
		price = *uc.Price
	}
	return validateRateAndPrice(price, uc.AffiliateRate)
}

func validateRateAndPrice(price decimal.Decimal, rate *decimal.Decimal) error {
	if price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: "price cannot be negative"})
	}
	if rate != nil && (rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1))) {
		return core.NewValidationError(nil, core.FieldError{Field: "affiliate_rate", Error: "affiliate rate must be within [0, 1]"})
	}
	return nil
}

type QueryFilter struct {
	Search    string `query:"search"`
	Published *bool  `query:"published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Published == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter looks a Course up by exactly one of its unique attributes.
type GetFilter struct {
	ID   string
	Slug string
}
