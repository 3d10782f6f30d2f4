package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	. "github.com/elimuhub/elimu/apps/api/echo"
	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/enroll"
	"github.com/elimuhub/elimu/core/progress"
	"github.com/elimuhub/elimu/core/user"
	emailsvc "github.com/elimuhub/elimu/services/email"
	paymentsvc "github.com/elimuhub/elimu/services/payment"
	inmemdb "github.com/elimuhub/elimu/storage/database/inmem"
	testutil "github.com/elimuhub/elimu/tests"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	conf    *core.Config
	app     Server
	usrRepo user.Repository
	crsRepo course.Repository
	affRepo affiliate.Repository

	dummyProvider *paymentsvc.DummyProvider

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// doublingFx stands in for the forex service: every conversion doubles.
type doublingFx struct{}

func (doublingFx) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return amount.Mul(decimal.NewFromInt(2)), nil
}

// nopLogger silences request-cycle logging during tests.
type nopLogger struct{}

func (nopLogger) Enable(bool) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMain(m *testing.M) {
	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		os.Exit(1)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	affRepo = inmemdb.NewAffiliateRepository(db)

	// set up services
	conf = testutil.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(crsRepo)
	affSvc := affiliate.NewService(affRepo, crsSvc, conf)

	dummyProvider = paymentsvc.NewDummyProvider()
	providers := map[string]enroll.PaymentProvider{enroll.ProviderDummy: dummyProvider}
	enrSvc := enroll.NewService(inmemdb.NewEnrollmentRepository(db), crsSvc, usrSvc, affSvc, providers, nil, mailSvc, nopLogger{}, conf)
	prgSvc := progress.NewService(inmemdb.NewProgressRepository(db), crsSvc, usrSvc, mailSvc, nopLogger{}, conf)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	app = NewServer(ServerDeps{
		Conf:         conf,
		Logger:       nopLogger{},
		UserSvc:      usrSvc,
		CourseSvc:    crsSvc,
		AffiliateSvc: affSvc,
		EnrollSvc:    enrSvc,
		ProgressSvc:  prgSvc,
		Forex:        doublingFx{},
		Validate:     validate,
		Translator:   translator,
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v; body = %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
