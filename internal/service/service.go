// Package service contains the business logic layer of the application.
//
// The layers:
//
//	Handler (HTTP)       → parses requests, writes responses
//	Service (this pkg)   → validates, authorizes, orchestrates
//	Repository           → reads/writes records (memory, remote, redis)
//
// Every exported method follows the same contract:
//
//   - it waits the simulated network latency before touching a store
//   - validation and authorization happen before any mutation
//   - it returns (result, error) and never both a result and an error
//   - every error is an *apperror.AppError; store failures become Transport
//   - a panic inside an operation is recovered and reported as Transport
//
// Authorization uses the identity the caller supplies (actor). In a
// client-only deployment that identity is not trustworthy, so any real
// backend must run the same auth.Authorize checks again.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/latency"
)

var serviceCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portfolio_service_calls_total",
		Help: "Service operations by service, operation and outcome.",
	},
	[]string{"service", "op", "outcome"},
)

// base carries what every service needs: a name for logs and metrics, the
// latency simulator and a logger.
type base struct {
	name    string
	latency *latency.Simulator
	logger  *slog.Logger
}

func newBase(name string, sim *latency.Simulator, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return base{name: name, latency: sim, logger: logger.With(slog.String("service", name))}
}

// run executes one service operation. op is a short phrase such as
// "listing comments"; it names the operation in logs, metrics and in the
// message of a Transport error ("listing comments failed").
func run[T any](ctx context.Context, b *base, op string, kind latency.Kind, fn func(ctx context.Context) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in service call",
				slog.String("op", op),
				slog.Any("panic", r),
			)
			var zero T
			out, err = zero, apperror.Transport(op, fmt.Errorf("panic: %v", r))
		}
		serviceCalls.WithLabelValues(b.name, op, outcome(err)).Inc()
	}()

	if err := b.latency.Wait(ctx, kind); err != nil {
		var zero T
		return zero, apperror.Transport(op, err)
	}

	out, err = fn(ctx)
	if err != nil {
		err = apperror.Normalize(op, err)
		if errors.Is(err, apperror.ErrTransport) {
			attrs := []any{slog.String("op", op), slog.String("error", err.Error())}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Cause() != nil {
				attrs = append(attrs, slog.String("cause", appErr.Cause().Error()))
			}
			b.logger.Error("service call failed", attrs...)
		}
		var zero T
		return zero, err
	}
	return out, nil
}

// do is run for operations with no result.
func do(ctx context.Context, b *base, op string, kind latency.Kind, fn func(ctx context.Context) error) error {
	_, err := run(ctx, b, op, kind, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperror.Kind(err)
}

// =========================================================================
// VALIDATION
// =========================================================================

var (
	usernameChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// validate is shared by every service. validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match request bodies.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameChars.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validateStruct runs the struct's validate tags and converts the first
// failure into a ValidationFailed error with a readable message.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", "invalid input")
	}
	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Param() == "1" {
			return label + " cannot be empty"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "url":
		return label + " must be a valid URL"
	case "username":
		return "Username can only contain letters, numbers, and underscores"
	case "slug":
		return "Slug can only contain lowercase letters, numbers, and single hyphens"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

// humanize turns "display_name" into "Display name".
func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
