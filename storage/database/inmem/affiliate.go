package inmemdb

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core/affiliate"
)

type affiliateRepository struct {
	db *affiliateTable
}

var _ affiliate.Repository = (*affiliateRepository)(nil) // interface compliance check

func NewAffiliateRepository(db *DB) *affiliateRepository {
	return &affiliateRepository{db: db.affiliate}
}

/// CreateRecord models the schema's unique constraints: one record per
// (user, course) pair and globally unique codes.
func (repo *affiliateRepository) CreateRecord(ctx context.Context, rec affiliate.Record) (affiliate.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.UserID == rec.UserID && existing.CourseID == rec.CourseID {
			return affiliate.Record{}, affiliate.ErrRecordExists
		}
		if existing.Code == rec.Code {
			return affiliate.Record{}, affiliate.ErrRecordExists
		}
	}

	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *affiliateRepository) GetRecordByOwner(ctx context.Context, userID, courseID string) (affiliate.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.table {
		if rec.UserID == userID && rec.CourseID == courseID {
			return *rec, nil
		}
	}
	return affiliate.Record{}, affiliate.ErrRecordNotFound
}

func (repo *affiliateRepository) GetRecordByCode(ctx context.Context, courseID, code string) (affiliate.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.table {
		if rec.CourseID == courseID && rec.Code == code {
			return *rec, nil
		}
	}
	return affiliate.Record{}, affiliate.ErrCodeNotFound
}

// IncrementClicks bumps the click counter under the table's write lock so that
// concurrent trackers never lose an increment.
func (repo *affiliateRepository) IncrementClicks(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return affiliate.ErrRecordNotFound
	}
	rec.Clicks++
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementConversion applies the conversion count and the earned commission
// as one update under the table's write lock.
func (repo *affiliateRepository) IncrementConversion(ctx context.Context, id string, earned decimal.Decimal) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return affiliate.ErrRecordNotFound
	}
	rec.Conversions++
	rec.TotalEarnings = rec.TotalEarnings.Add(earned)
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
