package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core/enroll"
)

type enrollmentRow struct {
	ID          string          `db:"id"`
	UserID      string          `db:"user_id"`
	CourseID    string          `db:"course_id"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Provider    string          `db:"provider"`
	ProviderRef string          `db:"provider_ref"`
	RefCode     string          `db:"ref_code"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r enrollmentRow) toEnrollment() enroll.Enrollment {
	return enroll.Enrollment{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		Amount:      r.Amount,
		Currency:    strings.TrimSpace(r.Currency),
		Provider:    r.Provider,
		ProviderRef: r.ProviderRef,
		RefCode:     r.RefCode,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enroll.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO enrollment (id, user_id, course_id, amount, currency, provider, provider_ref, ref_code, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		enr.ID, enr.UserID, enr.CourseID, enr.Amount, enr.Currency, enr.Provider, enr.ProviderRef,
		enr.RefCode, enr.Status, enr.CreatedAt.UTC(), enr.UpdatedAt.UTC(),
	)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollmentByProviderRef(ctx context.Context, ref string) (enroll.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE provider_ref = $1`, ref); err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "finding enrollment by provider ref")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) GetCompletedEnrollment(ctx context.Context, userID, courseID string) (enroll.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2 AND status = $3`,
		userID, courseID, enroll.StatusCompleted)
	if err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "finding completed enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) QueryEnrollmentsForUser(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

// TransitionEnrollmentStatus performs the status change as a conditional
// UPDATE so concurrent callers cannot both win the same transition.
func (repo enrollmentRepository) TransitionEnrollmentStatus(ctx context.Context, id, from, to string) (enroll.Enrollment, bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE enrollment SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return enroll.Enrollment{}, false, errors.Wrap(err, "updating enrollment status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return enroll.Enrollment{}, false, errors.Wrap(err, "updating enrollment status")
	}

	var row enrollmentRow
	if err = repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		return enroll.Enrollment{}, false, repo.trapNoRowsErr(err, "finding enrollment")
	}
	return row.toEnrollment(), n == 1, nil
}
