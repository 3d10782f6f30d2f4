package affiliate

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/course"
)

var (
	// errors
	ErrRecordNotFound = errors.New("affiliate record not found")
	ErrRecordExists   = errors.New("affiliate record already exists for this user and course")
	ErrCodeNotFound   = errors.New("affiliate code not found")
	ErrInvalidCode    = errors.New("affiliate code does not belong to this course")
	ErrInvalidAmount  = errors.New("conversion amount must be positive")
)

type (
	Repository interface {
		// CreateRecord inserts the record; ErrRecordExists when the owner
		// already holds one for the course or the code is taken.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// GetRecordByOwner returns the single record held by userID for courseID;
		// ErrRecordNotFound on miss.
		GetRecordByOwner(ctx context.Context, userID, courseID string) (Record, error)
		// GetRecordByCode looks a record up by code within a course's affiliate
		// collection; ErrCodeNotFound on miss.
		GetRecordByCode(ctx context.Context, courseID, code string) (Record, error)
		// IncrementClicks atomically adds 1 to clicks and refreshes UpdatedAt.
		// The increment must happen in a single write, never read-modify-write.
		IncrementClicks(ctx context.Context, id string) error
		// IncrementConversion atomically adds 1 to conversions and `earned` to
		// total earnings in a single write, and refreshes UpdatedAt.
		IncrementConversion(ctx context.Context, id string, earned decimal.Decimal) error
	}

	Service interface {
		IssueCode(ctx context.Context, userID, courseID string) (IssuedCode, error)
		TrackClick(ctx context.Context, code, courseID string) error
		RecordConversion(ctx context.Context, code, courseID string, amount decimal.Decimal) error
		StatsForUser(ctx context.Context, userID string) ([]CourseStats, error)
		AggregatedStatsForUser(ctx context.Context, userID string) (AggregatedStats, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		conf      *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, conf *core.Config) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		conf:      conf,
	}
}

// IssueCode returns the user's referral code for a course, creating the ledger
// record on first request. Issuance is idempotent: re-requesting a code for a
// pair that already has one returns the existing record unchanged.
func (svc *service) IssueCode(ctx context.Context, userID, courseID string) (IssuedCode, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return IssuedCode{}, err
	}

	rec, err := svc.repo.GetRecordByOwner(ctx, userID, crs.ID)
	if err == nil {
		return svc.issued(rec), nil
	}
	if errors.Cause(err) != ErrRecordNotFound {
		return IssuedCode{}, errors.Wrap(err, "finding affiliate record")
	}

	code, err := newCode(crs.ID)
	if err != nil {
		return IssuedCode{}, errors.Wrap(err, "generating affiliate code")
	}
	now := time.Now().UTC()
	rec, err = svc.repo.CreateRecord(ctx, Record{
		ID:            uuid.New().String(),
		CourseID:      crs.ID,
		UserID:        userID,
		Code:          code,
		TotalEarnings: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		// a racing request may have inserted the record first; it wins
		if errors.Cause(err) == ErrRecordExists {
			if rec, err = svc.repo.GetRecordByOwner(ctx, userID, crs.ID); err == nil {
				return svc.issued(rec), nil
			}
		}
		return IssuedCode{}, errors.Wrap(err, "creating affiliate record")
	}
	return svc.issued(rec), nil
}

func (svc *service) issued(rec Record) IssuedCode {
	return IssuedCode{
		Code: rec.Code,
		Link: CourseLink(svc.conf.FrontendBaseURL, rec.CourseID, rec.Code),
	}
}

// TrackClick counts one referral-link visit against the code's record.
// The course segment embedded in the code must match the supplied course;
// this guards against cross-course code reuse.
func (svc *service) TrackClick(ctx context.Context, code, courseID string) error {
	// fold the id once so the match check and the lookup agree on casing
	courseID = core.CleanString(courseID, true /* lower */)
	if !strings.EqualFold(codeCoursePart(code), courseID) {
		return ErrInvalidCode
	}

	rec, err := svc.repo.GetRecordByCode(ctx, courseID, code)
	if err != nil {
		if errors.Cause(err) == ErrCodeNotFound {
			return ErrCodeNotFound
		}
		return errors.Wrap(err, "finding affiliate record by code")
	}
	return svc.repo.IncrementClicks(ctx, rec.ID)
}

// RecordConversion accrues commission for a completed purchase attributed to
// the code: conversions+1 and totalEarnings += amount * course rate, in a
// single atomic increment. An unknown code is a silent no-op: conversions are
// recorded as a side effect of payment capture and must never fail the
// purchase over a stale or missing referral code.
func (svc *service) RecordConversion(ctx context.Context, code, courseID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding course")
	}

	rec, err := svc.repo.GetRecordByCode(ctx, crs.ID, code)
	if err != nil {
		if errors.Cause(err) == ErrCodeNotFound {
			return nil
		}
		return errors.Wrap(err, "finding affiliate record by code")
	}

	earned := amount.Mul(crs.EffectiveAffiliateRate(svc.conf.DefaultAffiliateRate))
	return svc.repo.IncrementConversion(ctx, rec.ID, earned)
}

// StatsForUser emits one entry per course where the user holds a ledger
// record, pairing course metadata with the raw record fields.
// This is an O(courses) fan-out of point lookups; fine at catalog scale.
func (svc *service) StatsForUser(ctx context.Context, userID string) ([]CourseStats, error) {
	courses, err := svc.courseSvc.Query(ctx, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	stats := make([]CourseStats, 0, len(courses))
	for _, crs := range courses {
		rec, err := svc.repo.GetRecordByOwner(ctx, userID, crs.ID)
		if err != nil {
			if errors.Cause(err) == ErrRecordNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding affiliate record")
		}
		stats = append(stats, CourseStats{
			CourseID:      crs.ID,
			Title:         crs.Title,
			Thumbnail:     crs.Thumbnail,
			Code:          rec.Code,
			Link:          CourseLink(svc.conf.FrontendBaseURL, crs.ID, rec.Code),
			Clicks:        rec.Clicks,
			Conversions:   rec.Conversions,
			TotalEarnings: rec.TotalEarnings,
			UpdatedAt:     rec.UpdatedAt,
		})
	}
	return stats, nil
}

// AggregatedStatsForUser folds all of the user's ledger records into running
// totals.
func (svc *service) AggregatedStatsForUser(ctx context.Context, userID string) (AggregatedStats, error) {
	stats, err := svc.StatsForUser(ctx, userID)
	if err != nil {
		return AggregatedStats{}, err
	}

	agg := AggregatedStats{TotalEarnings: decimal.Zero}
	for _, st := range stats {
		agg.TotalClicks += st.Clicks
		agg.TotalConversions += st.Conversions
		agg.TotalEarnings = agg.TotalEarnings.Add(st.TotalEarnings)
		if st.Conversions > 0 {
			if agg.LastConversionDate == nil || st.UpdatedAt.After(*agg.LastConversionDate) {
				last := st.UpdatedAt
				agg.LastConversionDate = &last
			}
		}
	}
	return agg, nil
}
