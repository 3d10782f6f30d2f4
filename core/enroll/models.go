package enroll

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
)

// Enrollment statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Payment providers
const (
	ProviderPayPal = "paypal"
	ProviderMoMo   = "momo"
	ProviderDummy  = "dummy"
)

type Enrollment struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CourseID    string          `json:"course_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"provider_ref"`
	// RefCode is the affiliate code carried over from the referral link the
	// buyer followed, if any; consumed on capture.
	RefCode   string    `json:"ref_code,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (e Enrollment) IsCompleted() bool { return e.Status == StatusCompleted }

// NewEnrollment contains information needed to start a course purchase.
type NewEnrollment struct {
	CourseID string `json:"course_id" validate:"required"`
	Provider string `json:"provider" validate:"required,oneof=paypal momo dummy"`
	RefCode  string `json:"ref_code"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.RefCode = core.CleanString(ne.RefCode)
	return validate.Struct(ne)
}

// CaptureRequest confirms a provider order after buyer approval.
type CaptureRequest struct {
	ProviderRef string `json:"provider_ref" validate:"required"`
}

func (cr *CaptureRequest) Validate(validate *validator.Validate) error {
	cr.ProviderRef = core.CleanString(cr.ProviderRef)
	return validate.Struct(cr)
}

// BeginResult is returned when a purchase is initiated: the pending enrollment
// plus the provider URL the buyer must approve the payment at.
type BeginResult struct {
	Enrollment Enrollment `json:"enrollment"`
	ApproveURL string     `json:"approve_url,omitempty"`
}

type (
	// ProviderOrder describes the order submitted to a payment provider.
	ProviderOrder struct {
		Amount      decimal.Decimal
		Currency    string
		Description string
	}

	// CaptureResult reports the outcome of a provider capture call.
	CaptureResult struct {
		Captured bool
		Amount   decimal.Decimal
		Currency string
	}

	// PaymentProvider is the payment bridge boundary: order creation and
	// capture are provider concerns, everything after a successful capture
	// (enrollment completion, commission accrual) is ours.
	PaymentProvider interface {
		CreateOrder(ctx context.Context, ord ProviderOrder) (ref, approveURL string, err error)
		CaptureOrder(ctx context.Context, ref string) (CaptureResult, error)
	}

	// CurrencyConverter normalizes captured amounts into the course currency.
	// Some providers settle in a fixed currency regardless of the order.
	CurrencyConverter interface {
		Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	}
)
