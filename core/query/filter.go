// Package query describes what a list operation may select: a closed set of filters combined with And,
// plus pagination and ordering. The SQL translation lives with the repositories.
package query

import (
	"strings"

	"github.com/pkg/errors"
)

type Entity string

const (
	Users       Entity = "users"
	Courses     Entity = "courses"
	Enrollments Entity = "enrollments"
	Grades      Entity = "grades"
)

// Scope is the row visibility granted to an actor.
type Scope int

const (
	ScopeAll      Scope = iota
	ScopeNone           // matches nothing
	ScopeSelf           // users: id = actor
	ScopeTeacher        // courses taught by actor (directly or through the course)
	ScopeStudent        // rows whose student_id = actor
	ScopeEnrolled       // courses the actor is enrolled in
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeNone:
		return "none"
	case ScopeSelf:
		return "self"
	case ScopeTeacher:
		return "teacher"
	case ScopeStudent:
		return "student"
	case ScopeEnrolled:
		return "enrolled"
	}
	return "unknown"
}

// Field names an equality filter.
type Field string

const (
	FieldRole      Field = "role"
	FieldCourseID  Field = "courseId"
	FieldStudentID Field = "studentId"
	FieldTeacherID Field = "teacherId"
)

type (
	// Filter is implemented only by the types of this package.
	Filter interface {
		isFilter()
	}

	RoleFilter struct {
		Scope   Scope
		ActorID int
	}

	// SearchFilter is a case-insensitive substring match over the entity's searchable columns.
	SearchFilter struct {
		Term string
	}

	FieldFilter struct {
		Field Field
		Value interface{}
	}

	AndFilter []Filter
)

func (RoleFilter) isFilter()   {}
func (SearchFilter) isFilter() {}
func (FieldFilter) isFilter()  {}
func (AndFilter) isFilter()    {}

// Search returns a SearchFilter, or nil when term is blank.
func Search(term string) Filter {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return SearchFilter{Term: term}
}

// Eq returns a FieldFilter.
func Eq(field Field, value interface{}) Filter {
	return FieldFilter{Field: field, Value: value}
}

// And combines filters. Nested ANDs are flattened and nil filters dropped.
// It returns nil when nothing is left and the filter itself when only one is.
func And(filters ...Filter) Filter {
	var flat AndFilter
	for _, f := range filters {
		switch f := f.(type) {
		case nil:
			continue
		case AndFilter:
			if inner := And(f...); inner != nil {
				if a, ok := inner.(AndFilter); ok {
					flat = append(flat, a...)
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, f)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return flat
}

type entityRules struct {
	scopes     []Scope
	searchable bool
	fields     []Field
}

var rules = map[Entity]entityRules{
	Users: {
		scopes:     []Scope{ScopeAll, ScopeNone, ScopeSelf},
		searchable: true,
		fields:     []Field{FieldRole},
	},
	Courses: {
		scopes:     []Scope{ScopeAll, ScopeNone, ScopeTeacher, ScopeEnrolled},
		searchable: true,
		fields:     []Field{FieldTeacherID},
	},
	Enrollments: {
		scopes: []Scope{ScopeAll, ScopeNone, ScopeTeacher, ScopeStudent},
		fields: []Field{FieldCourseID, FieldStudentID},
	},
	Grades: {
		scopes: []Scope{ScopeAll, ScopeNone, ScopeTeacher, ScopeStudent},
		fields: []Field{FieldCourseID, FieldStudentID},
	},
}

// Validate checks that every part of f can be applied to entity.
func Validate(entity Entity, f Filter) error {
	r, ok := rules[entity]
	if !ok {
		return errors.Errorf("query: unknown entity %q", entity)
	}
	return r.validate(entity, f)
}

func (r entityRules) validate(entity Entity, f Filter) error {
	switch f := f.(type) {
	case nil:
		return nil
	case RoleFilter:
		for _, s := range r.scopes {
			if s == f.Scope {
				return nil
			}
		}
		return errors.Errorf("query: scope %s not applicable to %s", f.Scope, entity)
	case SearchFilter:
		if !r.searchable {
			return errors.Errorf("query: %s is not searchable", entity)
		}
		return nil
	case FieldFilter:
		for _, fld := range r.fields {
			if fld == f.Field {
				return nil
			}
		}
		return errors.Errorf("query: field %q not filterable on %s", f.Field, entity)
	case AndFilter:
		for _, inner := range f {
			if err := r.validate(entity, inner); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("query: unsupported filter %T", f)
}
