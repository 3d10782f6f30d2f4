package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core/progress"
)

type progressRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	CourseID         string         `db:"course_id"`
	CompletedLessons pq.StringArray `db:"completed_lessons"`
	QuizScores       []byte         `db:"quiz_scores"`
	Percent          int            `db:"percent"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r progressRow) toProgress() (progress.Progress, error) {
	scores := make(map[string]int)
	if len(r.QuizScores) > 0 {
		if err := json.Unmarshal(r.QuizScores, &scores); err != nil {
			return progress.Progress{}, errors.Wrap(err, "decoding quiz scores")
		}
	}
	return progress.Progress{
		ID:               r.ID,
		UserID:           r.UserID,
		CourseID:         r.CourseID,
		CompletedLessons: r.CompletedLessons,
		QuizScores:       scores,
		Percent:          r.Percent,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

type certificateRow struct {
	ID       string    `db:"id"`
	UserID   string    `db:"user_id"`
	CourseID string    `db:"course_id"`
	Serial   string    `db:"serial"`
	IssuedAt time.Time `db:"issued_at"`
}

func (r certificateRow) toCertificate() progress.Certificate {
	return progress.Certificate(r)
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.Progress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM progress WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return progress.Progress{}, progress.ErrNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "finding progress")
	}
	return row.toProgress()
}

func (repo progressRepository) UpsertProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	scores, err := json.Marshal(p.QuizScores)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "encoding quiz scores")
	}

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO progress (id, user_id, course_id, completed_lessons, quiz_scores, percent, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET completed_lessons = EXCLUDED.completed_lessons,
		     quiz_scores = EXCLUDED.quiz_scores,
		     percent = EXCLUDED.percent,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.CourseID, pq.StringArray(p.CompletedLessons), scores, p.Percent, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return p, nil
}

func (repo progressRepository) CreateCertificate(ctx context.Context, cert progress.Certificate) (progress.Certificate, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO certificate (id, user_id, course_id, serial, issued_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		cert.ID, cert.UserID, cert.CourseID, cert.Serial, cert.IssuedAt.UTC(),
	)
	if err != nil {
		return progress.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return cert, nil
}

func (repo progressRepository) GetCertificate(ctx context.Context, userID, courseID string) (progress.Certificate, error) {
	var row certificateRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM certificate WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return progress.Certificate{}, progress.ErrCertNotFound
		}
		return progress.Certificate{}, errors.Wrap(err, "finding certificate")
	}
	return row.toCertificate(), nil
}
