package enroll

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrCaptureDeclined = errors.New("payment was not captured")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByProviderRef(ctx context.Context, ref string) (Enrollment, error)
		GetCompletedEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollmentsForUser(ctx context.Context, userID string) ([]Enrollment, error)
		// TransitionEnrollmentStatus flips the enrollment from `from` to `to` as
		// one compare-and-swap write. It reports whether this call performed the
		// transition; a false return carries the row's current state.
		TransitionEnrollmentStatus(ctx context.Context, id, from, to string) (Enrollment, bool, error)
	}

	Service interface {
		Begin(ctx context.Context, userID string, ne NewEnrollment) (BeginResult, error)
		// Capture confirms the order identified by providerRef on behalf of
		// userID; an empty userID skips the ownership check (admin callers).
		Capture(ctx context.Context, userID, providerRef string) (Enrollment, error)
		ListForUser(ctx context.Context, userID string) ([]Enrollment, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		userSvc   user.Service
		ledger    affiliate.Service
		providers map[string]PaymentProvider
		fx        CurrencyConverter
		mailSvc   core.EmailService
		logger    core.Logger
		conf      *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	courseSvc course.Service,
	userSvc user.Service,
	ledger affiliate.Service,
	providers map[string]PaymentProvider,
	fx CurrencyConverter,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		userSvc:   userSvc,
		ledger:    ledger,
		providers: providers,
		fx:        fx,
		mailSvc:   mailSvc,
		logger:    logger,
		conf:      conf,
	}
}

// Begin creates a pending enrollment and the matching provider order.
func (svc *service) Begin(ctx context.Context, userID string, ne NewEnrollment) (BeginResult, error) {
	crs, err := svc.courseSvc.GetByID(ctx, ne.CourseID)
	if err != nil {
		return BeginResult{}, err
	}

	if _, err = svc.repo.GetCompletedEnrollment(ctx, userID, crs.ID); err == nil {
		return BeginResult{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != ErrNotFound {
		return BeginResult{}, errors.Wrap(err, "checking existing enrollment")
	}

	provider, ok := svc.providers[ne.Provider]
	if !ok {
		return BeginResult{}, core.NewValidationError(ErrUnknownProvider, core.FieldError{Field: "provider", Error: ErrUnknownProvider.Error()})
	}

	ref, approveURL, err := provider.CreateOrder(ctx, ProviderOrder{
		Amount:      crs.Price,
		Currency:    crs.Currency,
		Description: crs.Title,
	})
	if err != nil {
		return BeginResult{}, errors.Wrap(err, "creating provider order")
	}

	now := time.Now().UTC()
	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:          uuid.New().String(),
		UserID:      userID,
		CourseID:    crs.ID,
		Amount:      crs.Price,
		Currency:    crs.Currency,
		Provider:    ne.Provider,
		ProviderRef: ref,
		RefCode:     ne.RefCode,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return BeginResult{}, errors.Wrap(err, "creating enrollment")
	}
	return BeginResult{Enrollment: enr, ApproveURL: approveURL}, nil
}

// Capture confirms the provider order and completes the enrollment.
// A referral conversion, if any, is recorded fire-and-forget: ledger failures
// are logged and never block the purchase.
func (svc *service) Capture(ctx context.Context, userID, providerRef string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByProviderRef(ctx, providerRef)
	if err != nil {
		return Enrollment{}, err
	}
	if userID != "" && enr.UserID != userID {
		return Enrollment{}, ErrNotFound
	}
	if enr.IsCompleted() {
		return enr, nil // capture already processed
	}

	provider, ok := svc.providers[enr.Provider]
	if !ok {
		return Enrollment{}, ErrUnknownProvider
	}

	res, err := provider.CaptureOrder(ctx, enr.ProviderRef)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "capturing provider order")
	}
	if !res.Captured {
		if _, _, uerr := svc.repo.TransitionEnrollmentStatus(ctx, enr.ID, StatusPending, StatusFailed); uerr != nil {
			svc.logger.Error("marking enrollment failed", uerr)
		}
		return Enrollment{}, ErrCaptureDeclined
	}

	// pending→completed must happen exactly once: only the call that wins the
	// swap accrues commission and sends the receipt, racing captures of the
	// same order get the already-completed row.
	enr, completed, err := svc.repo.TransitionEnrollmentStatus(ctx, enr.ID, StatusPending, StatusCompleted)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "completing enrollment")
	}
	if !completed {
		return enr, nil
	}

	if enr.RefCode != "" {
		amount := res.Amount
		if svc.fx != nil && res.Currency != "" && !strings.EqualFold(res.Currency, enr.Currency) {
			converted, cerr := svc.fx.Convert(ctx, amount, res.Currency, enr.Currency)
			if cerr != nil {
				svc.logger.Error("converting captured amount", cerr)
			} else {
				amount = converted
			}
		}
		if err = svc.ledger.RecordConversion(ctx, enr.RefCode, enr.CourseID, amount); err != nil {
			svc.logger.Error("recording affiliate conversion", err)
		}
	}

	svc.sendReceiptMail(ctx, enr)
	return enr, nil
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsForUser(ctx, userID)
}

func (svc *service) sendReceiptMail(ctx context.Context, enr Enrollment) {
	usr, err := svc.userSvc.GetByID(ctx, enr.UserID)
	if err != nil {
		svc.logger.Error("finding buyer for receipt", err)
		return
	}
	crs, err := svc.courseSvc.GetByID(ctx, enr.CourseID)
	if err != nil {
		svc.logger.Error("finding course for receipt", err)
		return
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s: Purchase Receipt", svc.conf.AppName),
		TemplateName: "receipt",
		TemplateData: struct {
			Name     string
			Course   string
			Amount   string
			Currency string
		}{
			Name:     usr.Name,
			Course:   crs.Title,
			Amount:   enr.Amount.StringFixed(2),
			Currency: enr.Currency,
		},
	}
	svc.mailSvc.SendMessages(msg)
}
