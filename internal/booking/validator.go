package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type FieldError struct {
	Field   string `json:"field" bson:"field"`
	Message string `json:"message" bson:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is the result of validating a draft. An empty value means the
// draft can be submitted.
type FieldErrors []FieldError

func (v FieldErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

func (v FieldErrors) Has(field string) bool {
	for _, err := range v {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Details renders the errors as field -> message for API responses.
func (v FieldErrors) Details() map[string]any {
	out := make(map[string]any, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

type Validator struct {
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
}

// NewValidator builds a draft validator. "Today" is computed in loc from now;
// nil arguments default to the local zone and time.Now.
func NewValidator(loc *time.Location, now func() time.Time) *Validator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	v := &Validator{
		validate: validator.New(),
		loc:      loc,
		now:      now,
	}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	v.mustRegister("notblank", validateNotBlank)
	v.mustRegister("isodate", validateISODate)
	v.mustRegister("timeslot", validateTimeSlot)
	v.mustRegister("notpast", v.validateNotPast)

	return v
}

func (v *Validator) mustRegister(tag string, fn validator.Func) {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %q validator: %v", tag, err))
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateTimeSlot(fl validator.FieldLevel) bool {
	return IsValidSlot(strings.TrimSpace(fl.Field().String()))
}

// validateNotPast accepts today and any later date in the clinic's zone.
func (v *Validator) validateNotPast(fl validator.FieldLevel) bool {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(fl.Field().String()), v.loc)
	if err != nil {
		return false
	}
	now := v.now().In(v.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	return !date.Before(today)
}

// Validate checks every field of d and returns one error per failing field.
// It has no side effects.
func (v *Validator) Validate(d Draft) FieldErrors {
	err := v.validate.Struct(d)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return translateValidationErrors(validationErrs)
	}
	return FieldErrors{{Field: "draft", Message: err.Error()}}
}

func translateValidationErrors(errs validator.ValidationErrors) FieldErrors {
	var fieldErrors FieldErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			if err.Field() == FieldDoctor {
				message = "please select a doctor"
			} else {
				message = fmt.Sprintf("%s is required", err.Field())
			}
		case "notblank":
			message = fmt.Sprintf("%s is required", err.Field())
		case "isodate":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "notpast":
			message = fmt.Sprintf("%s cannot be in the past", err.Field())
		case "timeslot":
			message = fmt.Sprintf("%s must be a half-hour slot between 09:00 and 17:00", err.Field())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return fieldErrors
}
