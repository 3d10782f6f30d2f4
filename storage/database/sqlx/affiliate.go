package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core/affiliate"
)

type affiliateRow struct {
	ID            string          `db:"id"`
	CourseID      string          `db:"course_id"`
	UserID        string          `db:"user_id"`
	Code          string          `db:"code"`
	Clicks        int64           `db:"clicks"`
	Conversions   int64           `db:"conversions"`
	TotalEarnings decimal.Decimal `db:"total_earnings"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r affiliateRow) toRecord() affiliate.Record {
	return affiliate.Record{
		ID:            r.ID,
		CourseID:      r.CourseID,
		UserID:        r.UserID,
		Code:          r.Code,
		Clicks:        r.Clicks,
		Conversions:   r.Conversions,
		TotalEarnings: r.TotalEarnings,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type affiliateRepository struct {
	db *sqlx.DB
}

var _ affiliate.Repository = (*affiliateRepository)(nil) // interface compliance check

func NewAffiliateRepository(db *sqlx.DB) *affiliateRepository {
	return &affiliateRepository{db: db}
}

func (repo affiliateRepository) CreateRecord(ctx context.Context, rec affiliate.Record) (affiliate.Record, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO affiliate_record (id, course_id, user_id, code, clicks, conversions, total_earnings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.CourseID, rec.UserID, rec.Code, rec.Clicks, rec.Conversions, rec.TotalEarnings,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		// affiliate_record_owner_unique / code UNIQUE
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return affiliate.Record{}, affiliate.ErrRecordExists
		}
		return affiliate.Record{}, errors.Wrap(err, "inserting affiliate record")
	}
	return rec, nil
}

func (repo affiliateRepository) GetRecordByOwner(ctx context.Context, userID, courseID string) (affiliate.Record, error) {
	var row affiliateRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM affiliate_record WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return affiliate.Record{}, affiliate.ErrRecordNotFound
		}
		return affiliate.Record{}, errors.Wrap(err, "finding affiliate record by owner")
	}
	return row.toRecord(), nil
}

func (repo affiliateRepository) GetRecordByCode(ctx context.Context, courseID, code string) (affiliate.Record, error) {
	var row affiliateRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM affiliate_record WHERE course_id = $1 AND code = $2`, courseID, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return affiliate.Record{}, affiliate.ErrCodeNotFound
		}
		return affiliate.Record{}, errors.Wrap(err, "finding affiliate record by code")
	}
	return row.toRecord(), nil
}

// IncrementClicks relies on the database to perform the increment so that
// concurrent clicks never lose an update.
func (repo affiliateRepository) IncrementClicks(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE affiliate_record SET clicks = clicks + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "incrementing clicks")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return affiliate.ErrRecordNotFound
	}
	return nil
}

// IncrementConversion accrues one conversion and its commission in a single
// statement; both counters move together or not at all.
func (repo affiliateRepository) IncrementConversion(ctx context.Context, id string, earned decimal.Decimal) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE affiliate_record
		 SET conversions = conversions + 1, total_earnings = total_earnings + $1, updated_at = $2
		 WHERE id = $3`,
		earned, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "incrementing conversion")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return affiliate.ErrRecordNotFound
	}
	return nil
}
