// Package validation wraps go-playground/validator with JSON field names and
// French messages, and converts failures into domain validation errors.
package validation

import (
	stderrors "errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"

	"github.com/garyellow/classroom-planner/internal/errors"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// Engine returns the shared validator, initialized on first use.
// A validator.Validate caches struct metadata and is safe for concurrent use.
func Engine() *validator.Validate {
	once.Do(setup)
	return validate
}

func setup() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Without translations, messages fall back to the validator's English text.
	locale := fr.New()
	var found bool
	translator, found = ut.New(locale, locale).GetTranslator(locale.Locale())
	if !found {
		slog.Warn("French validation translator not found, using fallback", "locale", locale.Locale())
	}
	if err := fr_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		slog.Warn("Failed to register French validation messages", "error", err)
	}

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates v and returns every failing field as a
// errors.ValidationErrors, or nil. Field paths are prefixed with prefix when
// it is not empty (e.g. "templates[2]").
func Struct(prefix string, v any) error {
	var list errors.ValidationErrors
	Collect(&list, prefix, Engine().Struct(v))
	return list.OrNil()
}

// Collect appends the field failures of err to list.
func Collect(list *errors.ValidationErrors, prefix string, err error) {
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		list.Add(fieldOrRoot(prefix), err.Error())
		return
	}

	for _, fe := range fieldErrs {
		list.Add(joinField(prefix, fieldPath(fe)), fe.Translate(translator))
	}
}

// fieldPath drops the root struct name from the namespace:
// "Template.dayOfWeek" becomes "dayOfWeek".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

func fieldOrRoot(prefix string) string {
	if prefix == "" {
		return "input"
	}
	return prefix
}
