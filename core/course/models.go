package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/user"
)

type Course struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	Description null.String `json:"description"`
	TeacherID   null.Int    `json:"teacherId"`
	CreatedAt   time.Time   `json:"createdAt"` // UTC
}

// TeacherIDOrZero returns the assigned teacher id, 0 when the course has none.
func (c Course) TeacherIDOrZero() int {
	if !c.TeacherID.Valid {
		return 0
	}
	return c.TeacherID.Int
}

// Summary is a course as listed: with its teacher and the number of enrollments and grades.
type Summary struct {
	Course
	Teacher         *user.Brief `json:"teacher"`
	EnrollmentCount int         `json:"enrollmentCount"`
	GradeCount      int         `json:"gradeCount"`
}

// Brief is the course representation embedded in enrollments and grades.
type Brief struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	Description null.String `json:"description,omitempty"`
	Teacher     *user.Brief `json:"teacher,omitempty"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string   `json:"name" validate:"required"`
	Code        string   `json:"code" validate:"required,max=50"`
	Description string   `json:"description"`
	TeacherID   null.Int `json:"teacherId"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Description = core.CleanString(nc.Description)
	if nc.TeacherID.Valid && nc.TeacherID.Int <= 0 {
		nc.TeacherID = null.Int{}
	}

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if err := svc.CheckUniqueness(ctx, nc.Code); err != nil {
		return err
	}
	return svc.checkTeacher(ctx, nc.TeacherID)
}

// UpdateCourse replaces the editable fields of a Course. A missing teacherId unassigns the teacher.
type UpdateCourse struct {
	Name        string   `json:"name" validate:"required"`
	Code        string   `json:"code" validate:"required,max=50"`
	Description string   `json:"description"`
	TeacherID   null.Int `json:"teacherId"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc *Service) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Code = core.CleanString(uc.Code)
	uc.Description = core.CleanString(uc.Description)
	if uc.TeacherID.Valid && uc.TeacherID.Int <= 0 {
		uc.TeacherID = null.Int{}
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if err := svc.CheckUniqueness(ctx, uc.Code, orig); err != nil {
		return err
	}
	return svc.checkTeacher(ctx, uc.TeacherID)
}

func nullableString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
