// Package service contains the domain/application layer.
//
// THE LAYERS:
//
//	CLI / UI (presentation) → renders state, collects input
//	Service (this package)  → validates, ingests images, orchestrates, emits events
//	Repository              → reads/writes SQLite
//	Ingest                  → turns a source image into a stored PNG
//
// Services take interfaces (repository.*Repository, Ingester) so tests run
// against in-memory mocks and a fake ingester, with no disk or database.
//
// REFRESH WITHOUT BACK-POINTERS:
// A service never calls into the presentation layer. After every successful
// mutation it publishes an Event on the shared Notifier, and whatever view is
// interested subscribes to it.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/model"
)

// Ingester is the part of the ingestion package a service needs.
// Both *ingest.Pipeline and *ingest.Pool satisfy it.
type Ingester = ingest.Ingester

// DateLayout is the canonical day format for due dates and log dates.
// Keeping one layout makes text ordering equal to chronological ordering.
const DateLayout = model.DueDateLayout

// Priority bounds. Higher means more urgent.
const (
	MinPriority = 0
	MaxPriority = 10
)

var validate = newValidator()

// newValidator reports fields by their `field` tag, so errors read
// "due_date is required" rather than "DueDate".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// validateStruct runs the struct tags and converts the first failure into an
// apperror.ValidationFailed naming the field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	return apperror.ValidationFailed(field, describe(field, fe))
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
