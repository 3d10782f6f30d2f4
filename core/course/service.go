package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/elimuhub/elimu/core"
)

var (
	// errors
	ErrNotFound   = errors.New("course not found")
	ErrSlugExists = errors.New("a course with this slug already exists")
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		QueryPublished(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.repo.CheckSlugUniqueness(ctx, nc.Slug); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Course{}, err
	}

	now := time.Now().UTC()
	published := false
	if nc.Published != nil {
		published = *nc.Published
	}
	crs := Course{
		Slug:          nc.Slug,
		Title:         nc.Title,
		Description:   nc.Description,
		Thumbnail:     nc.Thumbnail,
		Price:         nc.Price,
		Currency:      nc.Currency,
		AffiliateRate: nc.AffiliateRate,
		LessonCount:   nc.LessonCount,
		Published:     &published,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) QueryPublished(ctx context.Context) ([]Course, error) {
	published := true
	return svc.repo.QueryCourses(ctx, &QueryFilter{Published: &published}, nil)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourse(ctx, GetFilter{ID: id})
	if err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		orig.Title = uc.Title
	}
	if uc.Description != "" {
		orig.Description = uc.Description
	}
	if uc.Thumbnail != "" {
		orig.Thumbnail = uc.Thumbnail
	}
	if uc.Price != nil {
		orig.Price = *uc.Price
	}
	if uc.Currency != "" {
		orig.Currency = uc.Currency
	}
	if uc.AffiliateRate != nil {
		orig.AffiliateRate = uc.AffiliateRate
	}
	if uc.LessonCount != nil {
		orig.LessonCount = *uc.LessonCount
	}
	if uc.Published != nil {
		orig.Published = uc.Published
	}
	orig.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}
