package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/enroll"
	"github.com/elimuhub/elimu/core/user"
	testutil "github.com/elimuhub/elimu/tests"
)

func Test_enrollApi_purchaseFlow(t *testing.T) {
	buyer := testutil.CreateUser(t, usrRepo, "Buyer", "enrbuyer", "enrbuyer@test.cd", "", user.StudentRoles, true)
	referrer := testutil.CreateUser(t, usrRepo, "Referrer", "enrref", "enrref@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "enr-course", "Enroll Course", decimal.NewFromInt(100), nil, 5, true)
	code := issueCode(t, referrer, crs.ID)
	buyerToken := getToken(t, buyer)

	var res enroll.BeginResult

	t.Run("begin", func(t *testing.T) {
		body := marshalObj(t, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy, RefCode: code})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", buyerToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &res)
		if res.Enrollment.Status != enroll.StatusPending {
			t.Errorf("status = %q; want %q", res.Enrollment.Status, enroll.StatusPending)
		}
		if res.Enrollment.ProviderRef == "" {
			t.Error("provider_ref is empty")
		}
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		body := marshalObj(t, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderMoMo})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", buyerToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"provider": enroll.ErrUnknownProvider.Error()}),
		}, rec)
	})

	t.Run("capture by another user", func(t *testing.T) {
		outsider := testutil.CreateUser(t, usrRepo, "Outsider", "enroutsider", "enroutsider@test.cd", "", user.StudentRoles, true)
		body := marshalObj(t, enroll.CaptureRequest{ProviderRef: res.Enrollment.ProviderRef})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/capture", getToken(t, outsider), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: enroll.ErrNotFound.Error()}),
		}, rec)
	})

	t.Run("capture", func(t *testing.T) {
		body := marshalObj(t, enroll.CaptureRequest{ProviderRef: res.Enrollment.ProviderRef})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/capture", buyerToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var enr enroll.Enrollment
		decodeBody(t, rec, &enr)
		if enr.Status != enroll.StatusCompleted {
			t.Errorf("status = %q; want %q", enr.Status, enroll.StatusCompleted)
		}

		// referral commission landed on the referrer's ledger
		req, rec = newAuthRequest(http.MethodGet, "/v1/affiliate/stats/summary", getToken(t, referrer))
		app.ServeHTTP(rec, req)
		var agg affiliate.AggregatedStats
		decodeBody(t, rec, &agg)
		if agg.TotalConversions != 1 {
			t.Errorf("conversions = %d; want 1", agg.TotalConversions)
		}
		if want := decimal.NewFromInt(20); !agg.TotalEarnings.Equal(want) {
			t.Errorf("earnings = %s; want %s", agg.TotalEarnings, want)
		}
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", buyerToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var enrs []enroll.Enrollment
		decodeBody(t, rec, &enrs)
		if len(enrs) != 1 {
			t.Fatalf("len(enrs) = %d; want 1", len(enrs))
		}
		if enrs[0].Status != enroll.StatusCompleted {
			t.Errorf("status = %q; want %q", enrs[0].Status, enroll.StatusCompleted)
		}
	})
}

func Test_enrollApi_captureDeclined(t *testing.T) {
	buyer := testutil.CreateUser(t, usrRepo, "Declined", "enrdeclined", "enrdeclined@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "enr-declined", "Declined Course", decimal.NewFromInt(100), nil, 5, true)
	token := getToken(t, buyer)

	body := marshalObj(t, enroll.NewEnrollment{CourseID: crs.ID, Provider: enroll.ProviderDummy})
	req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("begin: code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var res enroll.BeginResult
	decodeBody(t, rec, &res)

	dummyProvider.Decline = true
	defer func() { dummyProvider.Decline = false }()

	req, rec = newAuthRequest(http.MethodPost, "/v1/enrollments/capture", token, marshalObj(t, enroll.CaptureRequest{ProviderRef: res.Enrollment.ProviderRef}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusPaymentRequired,
		wantData: marshalObj(t, httpErr{Error: enroll.ErrCaptureDeclined.Error()}),
	}, rec)
}
