package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
)

const internalErrorText = "Error interno del servidor"

type (
	fieldIssue struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	httpError struct {
		Error interface{} `json:"error"`
	}
)

// statusFor maps the kind of a core.Error to an HTTP status code.
func statusFor(e *core.Error) int {
	switch {
	case errors.Is(e.Kind, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(e.Kind, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(e.Kind, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(e.Kind, core.ErrConflict), errors.Is(e.Kind, core.ErrNotEnrolled):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = fmt.Sprint(origErr.Message)
			}
		case validator.ValidationErrors:
			issues := make([]fieldIssue, 0, len(origErr))
			for _, vErr := range origErr {
				issues = append(issues, fieldIssue{Field: vErr.Field(), Message: vErr.Translate(translator)})
			}
			code = http.StatusBadRequest
			message = issues
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				issues := make([]fieldIssue, 0, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					issues = append(issues, fieldIssue{Field: fErr.Field, Message: fErr.Error})
				}
				message = issues
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.Error:
			code = statusFor(origErr)
			message = origErr.Message
			if code == http.StatusInternalServerError {
				message = internalErrorText
				logger.Error(internalErrorText, errors.Wrap(err, "unmapped error kind"))
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = internalErrorText

			args := []interface{}{errors.Wrap(err, internalErrorText)}
			if actor, aErr := contextActor(ctx); aErr == nil {
				args = append(args, actor)
			}
			logger.Error(internalErrorText, args...)

			if ctx.Echo().Debug {
				message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, httpError{Error: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
