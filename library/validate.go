package library

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// BookInput carries the free-text fields of a new book.
type BookInput struct {
	Title  string `json:"title" validate:"required,record_safe"`
	Author string `json:"author" validate:"required,record_safe"`
	ISBN   string `json:"isbn" validate:"required,record_safe"`
}

// BookUpdate carries replacement fields; empty fields keep the current value.
type BookUpdate struct {
	Title  string `json:"title" validate:"omitempty,record_safe"`
	Author string `json:"author" validate:"omitempty,record_safe"`
	ISBN   string `json:"isbn" validate:"omitempty,record_safe"`
}

type credentialsInput struct {
	Username string `json:"username" validate:"required,record_safe,max=64"`
	Password string `json:"password" validate:"required,record_safe"`
}

func normalizeBookInput(in BookInput) BookInput {
	return BookInput{Title: norm.NFC.String(in.Title), Author: norm.NFC.String(in.Author), ISBN: norm.NFC.String(in.ISBN)}
}

func normalizeBookUpdate(in BookUpdate) BookUpdate {
	return BookUpdate{Title: norm.NFC.String(in.Title), Author: norm.NFC.String(in.Author), ISBN: norm.NFC.String(in.ISBN)}
}

// inputValidator wraps go-playground/validator with domain error conversion.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()

	// Use JSON tag names in error details.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Fields end up on a single delimited line.
	_ = v.RegisterValidation("record_safe", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n"+Delimiter)
	})

	return &inputValidator{v: v}
}

func (iv *inputValidator) validate(s any) error {
	err := iv.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	details := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		details[e.Field()] = friendlyMessage(e)
	}
	return validationWithDetails(fmt.Sprintf("invalid input: %s", joinDetails(details)), details)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "record_safe":
		return "must not contain line breaks or '" + Delimiter + "'"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}

func joinDetails(details map[string]string) string {
	parts := make([]string, 0, len(details))
	for _, field := range []string{"title", "author", "isbn", "username", "password"} {
		if msg, ok := details[field]; ok {
			parts = append(parts, field+" "+msg)
		}
	}
	return strings.Join(parts, ", ")
}
