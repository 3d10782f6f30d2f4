package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/apps/api/echo"
	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/user"
	testutil "github.com/elimuhub/elimu/tests"
)

func Test_affiliateApi_issueCode(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Ref One", "refone", "refone@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "aff-issue", "Affiliate Issue", decimal.NewFromInt(50), nil, 5, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/affiliate/code",
			body: marshalObj(t, echoapi.IssueCodeRequest{CourseID: crs.ID}),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "course_id required", method: http.MethodPost, path: "/v1/affiliate/code",
			body: marshalObj(t, echoapi.IssueCodeRequest{}), token: token,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown course", method: http.MethodPost, path: "/v1/affiliate/code",
			body: marshalObj(t, echoapi.IssueCodeRequest{CourseID: "nope"}), token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Issue is idempotent", func(t *testing.T) {
		body := marshalObj(t, echoapi.IssueCodeRequest{CourseID: crs.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/affiliate/code", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var issued affiliate.IssuedCode
		decodeBody(t, rec, &issued)
		if prefix := strings.ToUpper(crs.ID) + "-"; !strings.HasPrefix(issued.Code, prefix) {
			t.Errorf("code = %q; want prefix %q", issued.Code, prefix)
		}
		if !strings.Contains(issued.Link, "?ref="+issued.Code) {
			t.Errorf("link = %q; want ref %q", issued.Link, issued.Code)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/affiliate/code", token, body)
		app.ServeHTTP(rec, req)
		var again affiliate.IssuedCode
		decodeBody(t, rec, &again)
		if again.Code != issued.Code {
			t.Errorf("re-issue returned %q; want %q", again.Code, issued.Code)
		}
	})
}

func Test_affiliateApi_trackClick(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Ref Two", "reftwo", "reftwo@test.cd", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "aff-click", "Affiliate Click", decimal.NewFromInt(50), nil, 5, true)
	other := testutil.CreateCourse(t, crsRepo, "aff-other", "Affiliate Other", decimal.NewFromInt(50), nil, 5, true)
	code := issueCode(t, usr, crs.ID)

	tests := []httpTest{
		{
			name: "Click needs no auth", method: http.MethodPost, path: "/v1/affiliate/click",
			body:     marshalObj(t, echoapi.TrackClickRequest{CourseID: crs.ID, Code: code}),
			wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.SuccessResponse{Success: "click recorded"}),
		},
		{
			name: "Foreign code is rejected", method: http.MethodPost, path: "/v1/affiliate/click",
			body:     marshalObj(t, echoapi.TrackClickRequest{CourseID: other.ID, Code: code}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: affiliate.ErrInvalidCode.Error()}),
		},
		{
			name: "Unknown code", method: http.MethodPost, path: "/v1/affiliate/click",
			body:     marshalObj(t, echoapi.TrackClickRequest{CourseID: crs.ID, Code: strings.ToUpper(crs.ID) + "-ZZZZZ"}),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: affiliate.ErrCodeNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_affiliateApi_stats(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Ref Three", "refthree", "refthree@test.cd", "", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Aff Admin", "affadmin", "affadmin@test.cd", "", user.AdminRoles, true)
	crs := testutil.CreateCourse(t, crsRepo, "aff-stats", "Affiliate Stats", decimal.NewFromInt(100), nil, 5, true)
	code := issueCode(t, usr, crs.ID)
	token := getToken(t, usr)

	// two clicks
	for i := 0; i < 2; i++ {
		req, rec := newRequest(http.MethodPost, "/v1/affiliate/click", marshalObj(t, echoapi.TrackClickRequest{CourseID: crs.ID, Code: code}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("click: code = %v; body = %s", rec.Code, rec.Body.String())
		}
	}

	// back-office conversion replay; admin only
	convBody := marshalObj(t, echoapi.RecordConversionRequest{CourseID: crs.ID, Code: code, Amount: decimal.NewFromInt(100)})
	req, rec := newAuthRequest(http.MethodPost, "/v1/affiliate/conversion", token, convBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/affiliate/conversion", getToken(t, admin), convBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.SuccessResponse{Success: "conversion recorded"})}, rec)

	t.Run("per-course stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/affiliate/stats", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var stats []affiliate.CourseStats
		decodeBody(t, rec, &stats)
		if len(stats) != 1 {
			t.Fatalf("len(stats) = %d; want 1", len(stats))
		}
		st := stats[0]
		if st.CourseID != crs.ID || st.Code != code {
			t.Errorf("stats = %+v; want course %q code %q", st, crs.ID, code)
		}
		if st.Clicks != 2 || st.Conversions != 1 {
			t.Errorf("clicks/conversions = %d/%d; want 2/1", st.Clicks, st.Conversions)
		}
		if want := decimal.NewFromInt(20); !st.TotalEarnings.Equal(want) {
			t.Errorf("earnings = %s; want %s", st.TotalEarnings, want)
		}
	})

	t.Run("summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/affiliate/stats/summary", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var agg affiliate.AggregatedStats
		decodeBody(t, rec, &agg)
		if agg.TotalClicks != 2 || agg.TotalConversions != 1 {
			t.Errorf("totals = %d/%d; want 2/1", agg.TotalClicks, agg.TotalConversions)
		}
		if agg.LastConversionDate == nil {
			t.Error("LastConversionDate = nil; want set")
		}
	})
}

func issueCode(t *testing.T, usr user.User, courseID string) string {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/v1/affiliate/code", getToken(t, usr), marshalObj(t, echoapi.IssueCodeRequest{CourseID: courseID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("issueCode(): code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var issued affiliate.IssuedCode
	decodeBody(t, rec, &issued)
	return issued.Code
}
