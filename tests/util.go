package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/user"
)

// Logger discards everything below Error and fails the test on Error/Fatal.
type Logger struct {
	t *testing.T
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger { return &Logger{t: t} }

func (l *Logger) Enable(bool) {}
func (l *Logger) Debug(msg string, args ...interface{}) {}
func (l *Logger) Info(msg string, args ...interface{})  {}
func (l *Logger) Warn(msg string, args ...interface{})  {}
func (l *Logger) Error(msg string, args ...interface{}) {
	l.t.Helper()
	l.t.Errorf("unexpected error logged: %s %v", msg, args)
}
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.t.Helper()
	l.t.Fatalf("fatal logged: %s %v", msg, args)
}

// NewConfig returns a self-contained configuration for tests; nothing is read
// from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Elimu",
		SecretKey:        []byte("secret"),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@localhost",

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		DefaultAffiliateRate:      0.20,

		Server: core.ServerConfig{
			Host:                      "localhost",
			Addr:                      ":8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  &isActive,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	slug, title string,
	price decimal.Decimal,
	rate *decimal.Decimal,
	lessons int,
	published bool,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		ID:            uuid.New().String(),
		Slug:          slug,
		Title:         title,
		Price:         price,
		Currency:      "USD",
		AffiliateRate: rate,
		LessonCount:   lessons,
		Published:     &published,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateRecord(
	t *testing.T,
	repo affiliate.Repository,
	userID, courseID, code string,
) affiliate.Record {
	t.Helper()

	now := time.Now().UTC()
	rec, err := repo.CreateRecord(context.Background(), affiliate.Record{
		ID:            uuid.New().String(),
		CourseID:      courseID,
		UserID:        userID,
		Code:          code,
		TotalEarnings: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
