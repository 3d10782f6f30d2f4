package progress

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("progress not found")
	ErrCertNotFound = errors.New("certificate not found")
)

type (
	Repository interface {
		// GetProgress returns the single progress row for (userID, courseID);
		// ErrNotFound on miss.
		GetProgress(ctx context.Context, userID, courseID string) (Progress, error)
		// UpsertProgress creates or fully replaces the (userID, courseID) row.
		UpsertProgress(ctx context.Context, p Progress) (Progress, error)

		CreateCertificate(ctx context.Context, cert Certificate) (Certificate, error)
		// GetCertificate returns the certificate for (userID, courseID);
		// ErrCertNotFound on miss.
		GetCertificate(ctx context.Context, userID, courseID string) (Certificate, error)
	}

	Service interface {
		Get(ctx context.Context, userID, courseID string) (Progress, error)
		MarkLesson(ctx context.Context, userID string, req MarkLessonRequest) (Progress, error)
		RecordQuiz(ctx context.Context, userID string, req QuizResultRequest) (Progress, error)
		GetCertificate(ctx context.Context, userID, courseID string) (Certificate, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		userSvc   user.Service
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
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		userSvc:   userSvc,
		mailSvc:   mailSvc,
		logger:    logger,
		conf:      conf,
	}
}

// Get returns the user's progress for a course; a zeroed row is returned (not
// persisted) when the user has not started the course yet.
func (svc *service) Get(ctx context.Context, userID, courseID string) (Progress, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}

	p, err := svc.repo.GetProgress(ctx, userID, crs.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return svc.fresh(userID, crs.ID), nil
		}
		return Progress{}, err
	}
	return p, nil
}

// MarkLesson records a lesson as watched and recomputes completion.
// Marking an already-completed lesson is a no-op.
func (svc *service) MarkLesson(ctx context.Context, userID string, req MarkLessonRequest) (Progress, error) {
	crs, err := svc.courseSvc.GetByID(ctx, req.CourseID)
	if err != nil {
		return Progress{}, err
	}

	p, err := svc.getOrFresh(ctx, userID, crs.ID)
	if err != nil {
		return Progress{}, err
	}
	if p.HasCompletedLesson(req.LessonID) {
		return p, nil
	}

	p.CompletedLessons = append(p.CompletedLessons, req.LessonID)
	p.Percent = percent(len(p.CompletedLessons), crs.LessonCount)
	p.UpdatedAt = time.Now().UTC()

	p, err = svc.repo.UpsertProgress(ctx, p)
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving progress")
	}

	if p.IsComplete() {
		svc.issueCertificate(ctx, p, crs)
	}
	return p, nil
}

// RecordQuiz keeps the best score per lesson; a passing score also marks the
// lesson complete.
func (svc *service) RecordQuiz(ctx context.Context, userID string, req QuizResultRequest) (Progress, error) {
	crs, err := svc.courseSvc.GetByID(ctx, req.CourseID)
	if err != nil {
		return Progress{}, err
	}

	p, err := svc.getOrFresh(ctx, userID, crs.ID)
	if err != nil {
		return Progress{}, err
	}

	if best, ok := p.QuizScores[req.LessonID]; !ok || req.Score > best {
		p.QuizScores[req.LessonID] = req.Score
	}
	if req.Score >= PassMark && !p.HasCompletedLesson(req.LessonID) {
		p.CompletedLessons = append(p.CompletedLessons, req.LessonID)
		p.Percent = percent(len(p.CompletedLessons), crs.LessonCount)
	}
	p.UpdatedAt = time.Now().UTC()

	p, err = svc.repo.UpsertProgress(ctx, p)
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving progress")
	}

	if p.IsComplete() {
		svc.issueCertificate(ctx, p, crs)
	}
	return p, nil
}

func (svc *service) GetCertificate(ctx context.Context, userID, courseID string) (Certificate, error) {
	return svc.repo.GetCertificate(ctx, userID, courseID)
}

func (svc *service) getOrFresh(ctx context.Context, userID, courseID string) (Progress, error) {
	p, err := svc.repo.GetProgress(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return svc.fresh(userID, courseID), nil
		}
		return Progress{}, err
	}
	if p.QuizScores == nil {
		p.QuizScores = make(map[string]int)
	}
	return p, nil
}

func (svc *service) fresh(userID, courseID string) Progress {
	return Progress{
		ID:         uuid.New().String(),
		UserID:     userID,
		CourseID:   courseID,
		QuizScores: make(map[string]int),
		UpdatedAt:  time.Now().UTC(),
	}
}

// issueCertificate is idempotent: a second full completion of the same course
// keeps the original certificate.
func (svc *service) issueCertificate(ctx context.Context, p Progress, crs course.Course) {
	if _, err := svc.repo.GetCertificate(ctx, p.UserID, p.CourseID); err == nil {
		return
	} else if errors.Cause(err) != ErrCertNotFound {
		svc.logger.Error("checking existing certificate", err)
		return
	}

	cert, err := svc.repo.CreateCertificate(ctx, Certificate{
		ID:       uuid.New().String(),
		UserID:   p.UserID,
		CourseID: p.CourseID,
		Serial:   uuid.New().String(),
		IssuedAt: time.Now().UTC(),
	})
	if err != nil {
		svc.logger.Error("issuing certificate", err)
		return
	}
	svc.sendCertificateMail(ctx, cert, crs)
}

func (svc *service) sendCertificateMail(ctx context.Context, cert Certificate, crs course.Course) {
	usr, err := svc.userSvc.GetByID(ctx, cert.UserID)
	if err != nil {
		svc.logger.Error("finding user for certificate", err)
		return
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s: Certificate of Completion", svc.conf.AppName),
		TemplateName: "certificate",
		TemplateData: struct {
			Name   string
			Course string
			Serial string
		}{
			Name:   usr.Name,
			Course: crs.Title,
			Serial: cert.Serial,
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	pct := done * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}
