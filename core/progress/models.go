package progress

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elimuhub/elimu/core"
)

// PassMark is the minimum quiz score counted as a pass.
const PassMark = 70

// Progress is one student's completion state for one course.
type Progress struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	// CompletedLessons holds the ids of lessons watched to the end.
	CompletedLessons []string `json:"completed_lessons"`
	// QuizScores maps a lesson id to the best score achieved on its quiz.
	QuizScores map[string]int `json:"quiz_scores"`
	Percent    int            `json:"percent"` // 0-100
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (p Progress) IsComplete() bool { return p.Percent >= 100 }

func (p Progress) HasCompletedLesson(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Certificate is issued once a course is fully completed.
type Certificate struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	CourseID string    `json:"course_id"`
	Serial   string    `json:"serial"`
	IssuedAt time.Time `json:"issued_at"` // UTC
}

// MarkLessonRequest marks a lesson as watched to the end.
type MarkLessonRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	LessonID string `json:"lesson_id" validate:"required"`
}

func (ml *MarkLessonRequest) Validate(validate *validator.Validate) error {
	ml.LessonID = core.CleanString(ml.LessonID)
	return validate.Struct(ml)
}

// QuizResultRequest records a quiz attempt for a lesson.
type QuizResultRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	LessonID string `json:"lesson_id" validate:"required"`
	Score    int    `json:"score" validate:"gte=0,lte=100"`
}

func (qr *QuizResultRequest) Validate(validate *validator.Validate) error {
	qr.LessonID = core.CleanString(qr.LessonID)
	return validate.Struct(qr)
}
