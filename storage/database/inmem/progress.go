package inmemdb

import (
	"context"

	"github.com/elimuhub/elimu/core/progress"
)

type progressRepository struct {
	db    *progressTable
	certs *certificateTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db.progress, certs: db.certificate}
}

func progressKey(userID, courseID string) string { return userID + "/" + courseID }

func (repo *progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[progressKey(userID, courseID)]; ok {
		return *p, nil
	}
	return progress.Progress{}, progress.ErrNotFound
}

func (repo *progressRepository) UpsertProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[progressKey(p.UserID, p.CourseID)] = &p
	return p, nil
}

func (repo *progressRepository) CreateCertificate(ctx context.Context, cert progress.Certificate) (progress.Certificate, error) {
	repo.certs.Lock()
	defer repo.certs.Unlock()

	repo.certs.table[progressKey(cert.UserID, cert.CourseID)] = &cert
	return cert, nil
}

func (repo *progressRepository) GetCertificate(ctx context.Context, userID, courseID string) (progress.Certificate, error) {
	repo.certs.RLock()
	defer repo.certs.RUnlock()

	if cert, ok := repo.certs.table[progressKey(userID, courseID)]; ok {
		return *cert, nil
	}
	return progress.Certificate{}, progress.ErrCertNotFound
}
