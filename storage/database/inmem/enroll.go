package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/elimuhub/elimu/core/enroll"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByProviderRef(ctx context.Context, ref string) (enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.table {
		if enr.ProviderRef == ref {
			return *enr, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollmentRepository) GetCompletedEnrollment(ctx context.Context, userID, courseID string) (enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.table {
		if enr.UserID == userID && enr.CourseID == courseID && enr.Status == enroll.StatusCompleted {
			return *enr, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsForUser(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]enroll.Enrollment, 0)
	for _, enr := range repo.db.table {
		if enr.UserID == userID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

// TransitionEnrollmentStatus checks the current status under the write lock
// so only one of the racing callers performs the transition.
func (repo *enrollmentRepository) TransitionEnrollmentStatus(ctx context.Context, id, from, to string) (enroll.Enrollment, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr, ok := repo.db.table[id]
	if !ok {
		return enroll.Enrollment{}, false, enroll.ErrNotFound
	}
	if enr.Status != from {
		return *enr, false, nil
	}
	enr.Status = to
	enr.UpdatedAt = time.Now().UTC()
	return *enr, true, nil
}
