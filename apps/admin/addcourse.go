package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/course"
)

func (cli *commandLine) addCourse(slug, title, price, currency string, lessons int) error {
	ctx := context.Background()
	slug = core.CleanString(slug, true /* lower */)
	currency = core.CleanString(currency, true)

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}

	if err = cli.crsRepo.CheckSlugUniqueness(ctx, slug); err != nil {
		return err
	}

	now := time.Now().UTC()
	published := false
	_, err = cli.crsRepo.CreateCourse(ctx, course.Course{
		Slug:        slug,
		Title:       title,
		Price:       amount,
		Currency:    currency,
		LessonCount: lessons,
		Published:   &published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return err
}
