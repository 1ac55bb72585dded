package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/user"
)

type Enrollment struct {
	ID        int       `json:"id"`
	StudentID int       `json:"studentId"`
	CourseID  int       `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"` // UTC
}

// Detail is an enrollment with its student and course.
type Detail struct {
	Enrollment
	Student user.Brief   `json:"student"`
	Course  course.Brief `json:"course"`
}

// NewEnrollment contains information needed to enroll a student in a course.
type NewEnrollment struct {
	StudentID int `json:"studentId" validate:"required,gt=0"`
	CourseID  int `json:"courseId" validate:"required,gt=0"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// ReplaceEnrollments is the full set of courses a student must be enrolled in.
type ReplaceEnrollments struct {
	CourseIDs []int `json:"courseIds" validate:"required,dive,gt=0"`
}

func (re *ReplaceEnrollments) Validate(validate *validator.Validate) error {
	return validate.Struct(re)
}

// dedupe returns ids without repetitions, keeping the first occurrence order.
func dedupe(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
