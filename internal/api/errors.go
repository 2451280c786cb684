package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/mr1hm/go-disaster-reports/internal/auth"
	"github.com/mr1hm/go-disaster-reports/internal/repository"
)

var errUnauthenticated = errors.New("authentication required")

// validationError is a client fault whose message is safe to return as is.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// bindError turns a gin binding failure into a validationError naming the
// offending fields.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &validationError{msg: "malformed request body"}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &validationError{msg: strings.Join(msgs, "; ")}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

var setupValidator sync.Once

// configureValidator adds the notblank rule and makes validation errors name
// fields the way clients send them.
func configureValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// classify maps an error to the status and message sent to the client.
// Anything unrecognised is a store failure and its detail stays in the log.
func classify(err error) (int, string) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.msg
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrDuplicateUsername):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrInactiveUser):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrUnknownDisaster):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// errorResponse classifies err and logs the ones the client never sees the
// detail of.
func errorResponse(c *gin.Context, err error) (int, string) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
	return status, msg
}

func respondError(c *gin.Context, err error) {
	status, msg := errorResponse(c, err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
