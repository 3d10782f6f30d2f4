package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/course"
)

type courseRow struct {
	ID            string              `db:"id"`
	Slug          string              `db:"slug"`
	Title         string              `db:"title"`
	Description   string              `db:"description"`
	Thumbnail     string              `db:"thumbnail"`
	Price         decimal.Decimal     `db:"price"`
	Currency      string              `db:"currency"`
	AffiliateRate decimal.NullDecimal `db:"affiliate_rate"`
	LessonCount   int                 `db:"lesson_count"`
	Published     bool                `db:"published"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	published := r.Published
	crs := course.Course{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Thumbnail:   r.Thumbnail,
		Price:       r.Price,
		Currency:    strings.TrimSpace(r.Currency),
		LessonCount: r.LessonCount,
		Published:   &published,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AffiliateRate.Valid {
		rate := r.AffiliateRate.Decimal
		crs.AffiliateRate = &rate
	}
	return crs
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedCourses ...course.Course) error {
	query := `SELECT EXISTS (SELECT 1 FROM course WHERE slug = $1`
	args := []interface{}{slug}
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		query += ` AND id != ALL($2)`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if exists {
		return course.ErrSlugExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	rate := decimal.NullDecimal{}
	if crs.AffiliateRate != nil {
		rate = decimal.NullDecimal{Decimal: *crs.AffiliateRate, Valid: true}
	}
	published := crs.Published != nil && *crs.Published
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course (id, slug, title, description, thumbnail, price, currency, affiliate_rate, lesson_count, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		crs.ID, crs.Slug, crs.Title, crs.Description, crs.Thumbnail, crs.Price, crs.Currency, rate,
		crs.LessonCount, published, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourse(ctx, course.GetFilter{ID: crs.ID})
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	query := `SELECT * FROM course`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
		}
		if filter.Published != nil {
			conds = append(conds, "published = "+arg(*filter.Published))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	ordering = core.FilterOrderings(ordering,
		"slug", "title", "price", "published", "created_at", "updated_at")
	query += core.OrderingClause(ordering, "created_at DESC")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	var row courseRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, filter.ID)
	case filter.Slug != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE slug = $1`, filter.Slug)
	default:
		return course.Course{}, course.ErrNotFound
	}

	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	rate := decimal.NullDecimal{}
	if crs.AffiliateRate != nil {
		rate = decimal.NullDecimal{Decimal: *crs.AffiliateRate, Valid: true}
	}
	published := crs.Published != nil && *crs.Published
	res, err := repo.db.ExecContext(ctx,
		`UPDATE course
		 SET title = $1, description = $2, thumbnail = $3, price = $4, currency = $5,
		     affiliate_rate = $6, lesson_count = $7, published = $8, updated_at = $9
		 WHERE id = $10`,
		crs.Title, crs.Description, crs.Thumbnail, crs.Price, crs.Currency, rate,
		crs.LessonCount, published, crs.UpdatedAt.UTC(), crs.ID,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, course.GetFilter{ID: crs.ID})
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}
