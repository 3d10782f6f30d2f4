package inmemdb

import (
	"sync"

	"github.com/elimuhub/elimu/core/affiliate"
	"github.com/elimuhub/elimu/core/course"
	"github.com/elimuhub/elimu/core/enroll"
	"github.com/elimuhub/elimu/core/progress"
	"github.com/elimuhub/elimu/core/user"
)

type (
	DB struct {
		user        *userTable
		course      *courseTable
		affiliate   *affiliateTable
		enrollment  *enrollmentTable
		progress    *progressTable
		certificate *certificateTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	affiliateTable struct {
		sync.RWMutex
		table map[string]*affiliate.Record
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enroll.Enrollment
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Progress
	}

	certificateTable struct {
		sync.RWMutex
		table map[string]*progress.Certificate
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		course:      &courseTable{table: make(map[string]*course.Course)},
		affiliate:   &affiliateTable{table: make(map[string]*affiliate.Record)},
		enrollment:  &enrollmentTable{table: make(map[string]*enroll.Enrollment)},
		progress:    &progressTable{table: make(map[string]*progress.Progress)},
		certificate: &certificateTable{table: make(map[string]*progress.Certificate)},
	}
	return db, nil
}
