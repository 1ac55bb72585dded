// Package policy decides what each role may do. CanAccess answers single resource checks and ScopeFilter
// narrows list queries to the rows an actor may see. Role to permission rules live here and nowhere else.
package policy

import (
	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

var (
	ErrUnauthenticated = core.NewError(core.ErrUnauthenticated, "No autenticado")
	ErrForbidden       = core.NewError(core.ErrForbidden, "No tienes permiso para realizar esta acción")
	ErrNotEnrolled     = core.NewError(core.ErrNotEnrolled, "El alumno no está matriculado en el curso")
)

type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

type Kind string

const (
	KindUser       Kind = "user"
	KindCourse     Kind = "course"
	KindEnrollment Kind = "enrollment"
	KindGrade      Kind = "grade"
)

// Actor is the authenticated caller.
type Actor struct {
	ID    int
	Role  user.Role
	Email string
}

// Resource carries the ownership facts a decision depends on.
type Resource struct {
	Kind      Kind
	OwnerID   int  // KindUser: the profile's user id
	StudentID int  // KindEnrollment, KindGrade
	TeacherID int  // teacher of the course involved, 0 when unassigned
	Enrolled  bool // an enrollment exists for the student (or the actor, for courses) in the course
}

// CanAccess returns nil when actor may perform op on res. Otherwise the error wraps core.ErrUnauthenticated,
// core.ErrForbidden or core.ErrNotEnrolled.
func CanAccess(actor *Actor, op Operation, res Resource) error {
	if actor == nil || actor.ID <= 0 || !actor.Role.IsValid() {
		return ErrUnauthenticated
	}

	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleTeacher:
		return teacherAccess(actor, op, res)
	case user.RoleStudent:
		return studentAccess(actor, op, res)
	}
	return ErrForbidden
}

func teacherAccess(actor *Actor, op Operation, res Resource) error {
	switch res.Kind {
	case KindUser:
		if res.OwnerID == actor.ID && (op == OpRead || op == OpUpdate) {
			return nil
		}
	case KindCourse, KindEnrollment:
		if op == OpRead && res.TeacherID == actor.ID {
			return nil
		}
	case KindGrade:
		if res.TeacherID != actor.ID {
			break
		}
		switch op {
		case OpRead:
			return nil
		case OpCreate, OpUpdate:
			if !res.Enrolled {
				return ErrNotEnrolled
			}
			return nil
		}
	}
	return ErrForbidden
}

func studentAccess(actor *Actor, op Operation, res Resource) error {
	switch res.Kind {
	case KindUser:
		if res.OwnerID == actor.ID && (op == OpRead || op == OpUpdate) {
			return nil
		}
	case KindCourse:
		if op == OpRead && res.Enrolled {
			return nil
		}
	case KindEnrollment, KindGrade:
		if op == OpRead && res.StudentID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

// HasRole reports whether actor is authenticated with one of roles.
func HasRole(actor *Actor, roles ...user.Role) bool {
	if actor == nil {
		return false
	}
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// ScopeFilter returns the row filter restricting a list of entity to what actor may see.
func ScopeFilter(actor *Actor, entity query.Entity) query.Filter {
	if actor == nil || actor.ID <= 0 {
		return query.RoleFilter{Scope: query.ScopeNone}
	}
	scoped := func(s query.Scope) query.Filter {
		return query.RoleFilter{Scope: s, ActorID: actor.ID}
	}

	switch actor.Role {
	case user.RoleAdmin:
		return scoped(query.ScopeAll)
	case user.RoleTeacher:
		switch entity {
		case query.Courses, query.Enrollments, query.Grades:
			return scoped(query.ScopeTeacher)
		case query.Users:
			return scoped(query.ScopeSelf)
		}
	case user.RoleStudent:
		switch entity {
		case query.Courses:
			return scoped(query.ScopeEnrolled)
		case query.Enrollments, query.Grades:
			return scoped(query.ScopeStudent)
		case query.Users:
			return scoped(query.ScopeSelf)
		}
	}
	return query.RoleFilter{Scope: query.ScopeNone}
}
