package application

import (
	"errors"
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/example/seatserve/internal/booking"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	plainText    = bluemonday.StrictPolicy()
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("deskid", func(fl validator.FieldLevel) bool {
			return validDeskID(fl.Field().String())
		})
	})
	return validate
}

// validDeskID accepts <building>.<wing>.<room-code>.<number> with
// alphanumeric or hyphenated parts.
func validDeskID(id string) bool {
	loc, err := booking.ParseDeskID(id)
	if err != nil {
		return false
	}
	for _, part := range []string{loc.Building, loc.Wing, loc.Room, loc.Number} {
		for _, r := range part {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
				return false
			}
		}
	}
	return true
}

// validateStruct runs the struct tags of input and translates failures into
// field errors keyed by snake_case field name.
func validateStruct(input any) *ValidationError {
	vErr := &ValidationError{}
	err := inputValidator().Struct(input)
	if err == nil {
		return vErr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", "is invalid")
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(snakeCase(fe.Field()), fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "deskid":
		return "must look like <building>.<wing>.<room-code>.<number>"
	default:
		return "is invalid"
	}
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sanitizeText strips markup from free text and collapses it to a single trimmed line.
func sanitizeText(value string) string {
	cleaned := html.UnescapeString(plainText.Sanitize(value))
	return strings.Join(strings.Fields(cleaned), " ")
}

func parseDateField(field, value string) (booking.Date, *ValidationError) {
	d, err := booking.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return booking.Date{}, fieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
