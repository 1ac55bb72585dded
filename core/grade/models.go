package grade

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/user"
)

type Grade struct {
	ID        int       `json:"id"`
	StudentID int       `json:"studentId"`
	CourseID  int       `json:"courseId"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Detail is a grade with its student and course.
type Detail struct {
	Grade
	Student user.Brief   `json:"student"`
	Course  course.Brief `json:"course"`
}

// Bounds is the inclusive range a grade value must fall in.
type Bounds struct {
	Min float64
	Max float64
}

func NewBounds(conf *core.Config) Bounds {
	return Bounds{Min: conf.Grade.Min, Max: conf.Grade.Max}
}

func (b Bounds) Check(value float64) error {
	if value < b.Min || value > b.Max {
		return core.NewFieldError("value", fmt.Sprintf("la nota debe estar entre %g y %g", b.Min, b.Max))
	}
	return nil
}

// Average returns the mean value of grades, or nil when there are none.
func Average(grades []Detail) *float64 {
	if len(grades) == 0 {
		return nil
	}
	var sum float64
	for _, g := range grades {
		sum += g.Value
	}
	avg := sum / float64(len(grades))
	return &avg
}

// NewGrade is the payload of a grade upsert. CourseID may come from the URL instead.
type NewGrade struct {
	StudentID int      `json:"studentId" validate:"required,gt=0"`
	CourseID  int      `json:"courseId" validate:"required,gt=0"`
	Value     *float64 `json:"value" validate:"required"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ng)
}
