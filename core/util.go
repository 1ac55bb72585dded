package core

import (
	"reflect"
	"strings"

	"github.com/kat-co/vala"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// MustNotBeNil panics when any of the named dependencies is nil. Used by constructors.
// Dependencies of a kind that cannot be nil (struct values) always pass.
func MustNotBeNil(deps map[string]interface{}) {
	checkers := make([]vala.Checker, 0, len(deps))
	for name, dep := range deps {
		if dep != nil && !isNilable(reflect.TypeOf(dep).Kind()) {
			continue
		}
		checkers = append(checkers, vala.IsNotNil(dep, name))
	}
	vala.BeginValidation().Validate(checkers...).CheckAndPanic()
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return true
	}
	return false
}

// Logger is implemented by the logging services.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
