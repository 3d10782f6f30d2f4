package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/apps/api/echo"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/user"
	testutil "github.com/elimuhub/elimu/tests"
)

func Test_courseApi_catalog(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "cat-pub", "Published Course", decimal.NewFromInt(40), nil, 5, true)
	testutil.CreateCourse(t, crsRepo, "cat-draft", "Draft Course", decimal.NewFromInt(40), nil, 5, false)

	t.Run("lists published only", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var courses []echoapi.CourseResponse
		decodeBody(t, rec, &courses)
		for _, c := range courses {
			if c.Slug == "cat-draft" {
				t.Error("draft course leaked into the public catalog")
			}
			if c.DisplayPrice != nil {
				t.Errorf("display price set without ?currency=: %+v", c)
			}
		}
	})

	t.Run("retrieve by slug", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/cat-pub")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var got echoapi.CourseResponse
		decodeBody(t, rec, &got)
		if got.ID != crs.ID {
			t.Errorf("id = %q; want %q", got.ID, crs.ID)
		}

		req, rec = newRequest(http.MethodGet, "/v1/courses/cat-nope")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: course.ErrNotFound.Error()})}, rec)
	})

	t.Run("display currency", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses/cat-pub?currency=cdf")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var got echoapi.CourseResponse
		decodeBody(t, rec, &got)
		if got.DisplayCurrency != "CDF" {
			t.Errorf("display_currency = %q; want CDF", got.DisplayCurrency)
		}
		if want := decimal.NewFromInt(80); got.DisplayPrice == nil || !got.DisplayPrice.Equal(want) {
			t.Errorf("display_price = %v; want %s", got.DisplayPrice, want)
		}
	})
}

func Test_courseApi_create(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Crs Student", "crsstudent", "crsstudent@test.cd", "", user.StudentRoles, true)
	instructor := testutil.CreateUser(t, usrRepo, "Crs Instructor", "crsinstr", "crsinstr@test.cd", "", user.InstructorRoles, true)

	newCrs := course.NewCourse{
		Slug:     "crs-new",
		Title:    "Brand New",
		Price:    decimal.NewFromInt(75),
		Currency: "USD",
	}

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, newCrs),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "Instructor required", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, newCrs),
			token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Instructor creates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor), marshalObj(t, newCrs))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var got course.Course
		decodeBody(t, rec, &got)
		if got.Slug != "crs-new" || got.ID == "" {
			t.Errorf("course = %+v", got)
		}

		// duplicate slug
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor), marshalObj(t, newCrs))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("dup slug: code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})
}
