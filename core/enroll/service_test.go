package enroll_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/enroll"
	"github.com/elimuhub/elimu/core/user"
	emailsvc "github.com/elimuhub/elimu/services/email"
	paymentsvc "github.com/elimuhub/elimu/services/payment"
	inmemdb "github.com/elimuhub/elimu/storage/database/inmem"
	testutil "github.com/elimuhub/elimu/tests"
)

type fixture struct {
	usrRepo  user.Repository
	crsRepo  course.Repository
	affRepo  affiliate.Repository
	affSvc   affiliate.Service
	provider *paymentsvc.DummyProvider
	svc      enroll.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := testutil.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := testutil.NewLogger(t)

	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	affRepo := inmemdb.NewAffiliateRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(crsRepo)
	affSvc := affiliate.NewService(affRepo, crsSvc, conf)

	provider := paymentsvc.NewDummyProvider()
	providers := map[string]enroll.PaymentProvider{enroll.ProviderDummy: provider}

	return &fixture{
		usrRepo:  usrRepo,
		crsRepo:  crsRepo,
		affRepo:  affRepo,
		affSvc:   affSvc,
		provider: provider,
		svc: enroll.NewService(
			inmemdb.NewEnrollmentRepository(db), crsSvc, usrSvc, affSvc, providers, nil, mailSvc, logger, conf,
		),
	}
}

func TestService_Begin(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, fix.usrRepo, "Student", "student1", "student@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, fix.crsRepo, "go-101", "Go 101", decimal.NewFromInt(100), nil, 10, true)

	res, err := fix.svc.Begin(ctx, usr.ID, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy})
	require.NoError(t, err)
	assert.Equal(t, enroll.StatusPending, res.Enrollment.Status)
	assert.Equal(t, crs.ID, res.Enrollment.CourseID)
	assert.True(t, res.Enrollment.Amount.Equal(crs.Price))
	assert.NotEmpty(t, res.Enrollment.ProviderRef)

	// unknown provider
	_, err = fix.svc.Begin(ctx, usr.ID, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderPayPal})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	// unknown course
	_, err = fix.svc.Begin(ctx, usr.ID, enroll.NewEnrollment{CourseID: "nope", Provider: enroll.ProviderDummy})
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestService_Capture(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	emailsvc.ClearSentMessages()

	buyer := testutil.CreateUser(t, fix.usrRepo, "Buyer", "buyer1", "buyer@test.cd", "", user.StudentRoles, true)
	referrer := testutil.CreateUser(t, fix.usrRepo, "Referrer", "referrer1", "ref@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, fix.crsRepo, "go-101", "Go 101", decimal.NewFromInt(100), nil, 10, true)

	issued, err := fix.affSvc.IssueCode(ctx, referrer.ID, crs.ID)
	require.NoError(t, err)

	res, err := fix.svc.Begin(ctx, buyer.ID, enroll.NewEnrollment{
		CourseID: crs.ID,
		Provider: enroll.ProviderDummy,
		RefCode:  issued.Code,
	})
	require.NoError(t, err)

	enr, err := fix.svc.Capture(ctx, buyer.ID, res.Enrollment.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, enroll.StatusCompleted, enr.Status)

	// commission accrued on the referrer's ledger: 100 * 0.20
	rec, err := fix.affRepo.GetRecordByOwner(ctx, referrer.ID, crs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Conversions)
	assert.True(t, rec.TotalEarnings.Equal(decimal.NewFromInt(20)), "TotalEarnings = %s, want 20", rec.TotalEarnings)

	// receipt email sent to the buyer
	require.NotEmpty(t, emailsvc.SentMessages)
	assert.Equal(t, buyer.Email, emailsvc.SentMessages[len(emailsvc.SentMessages)-1].To[0].Address)

	// capture is idempotent: no double accrual
	enr2, err := fix.svc.Capture(ctx, buyer.ID, res.Enrollment.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, enroll.StatusCompleted, enr2.Status)

	rec, err = fix.affRepo.GetRecordByOwner(ctx, referrer.ID, crs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Conversions)

	// a completed enrollment blocks re-purchase
	_, err = fix.svc.Begin(ctx, buyer.ID, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestService_Capture_concurrent(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, fix.usrRepo, "Buyer", "buyer1", "buyer@test.cd", "", user.StudentRoles, true)
	referrer := testutil.CreateUser(t, fix.usrRepo, "Referrer", "referrer1", "ref@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, fix.crsRepo, "go-101", "Go 101", decimal.NewFromInt(100), nil, 10, true)

	issued, err := fix.affSvc.IssueCode(ctx, referrer.ID, crs.ID)
	require.NoError(t, err)

	res, err := fix.svc.Begin(ctx, buyer.ID, enroll.NewEnrollment{
		CourseID: crs.ID,
		Provider: enroll.ProviderDummy,
		RefCode:  issued.Code,
	})
	require.NoError(t, err)

	// racing captures of the same order all succeed, but only the one that
	// wins the pending→completed swap accrues commission
	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			enr, err := fix.svc.Capture(ctx, buyer.ID, res.Enrollment.ProviderRef)
			if assert.NoError(t, err) {
				assert.Equal(t, enroll.StatusCompleted, enr.Status)
			}
		}()
	}
	wg.Wait()

	rec, err := fix.affRepo.GetRecordByOwner(ctx, referrer.ID, crs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Conversions)
	assert.True(t, rec.TotalEarnings.Equal(decimal.NewFromInt(20)), "TotalEarnings = %s, want 20", rec.TotalEarnings)
}

func TestService_Capture_foreignUser(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, fix.usrRepo, "Buyer", "buyer1", "buyer@test.cd", "", user.StudentRoles, true)
	other := testutil.CreateUser(t, fix.usrRepo, "Other", "other1", "other@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, fix.crsRepo, "go-101", "Go 101", decimal.NewFromInt(100), nil, 10, true)

	res, err := fix.svc.Begin(ctx, buyer.ID, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy})
	require.NoError(t, err)

	// only the order's owner may capture it
	_, err = fix.svc.Capture(ctx, other.ID, res.Enrollment.ProviderRef)
	assert.Equal(t, enroll.ErrNotFound, errors.Cause(err))

	enrs, err := fix.svc.ListForUser(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, enrs, 1)
	assert.Equal(t, enroll.StatusPending, enrs[0].Status)

	// an empty caller id skips the ownership check (admin callers)
	enr, err := fix.svc.Capture(ctx, "", res.Enrollment.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, enroll.StatusCompleted, enr.Status)
}

func TestService_Capture_declined(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, fix.usrRepo, "Buyer", "buyer1", "buyer@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, fix.crsRepo, "go-101", "Go 101", decimal.NewFromInt(100), nil, 10, true)

	res, err := fix.svc.Begin(ctx, buyer.ID, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy})
	require.NoError(t, err)

	fix.provider.Decline = true
	_, err = fix.svc.Capture(ctx, buyer.ID, res.Enrollment.ProviderRef)
	assert.Equal(t, enroll.ErrCaptureDeclined, errors.Cause(err))

	enrs, err := fix.svc.ListForUser(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, enrs, 1)
	assert.Equal(t, enroll.StatusFailed, enrs[0].Status)

	// unknown provider ref
	_, err = fix.svc.Capture(ctx, buyer.ID, "nope")
	assert.Equal(t, enroll.ErrNotFound, errors.Cause(err))
}
