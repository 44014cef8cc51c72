// Package forms binds and validates submitted HTML forms.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const msgRequired = "This field is required."

// FieldErrors maps a form field name to its error message. "__all__" holds form-wide errors.
type FieldErrors map[string]string

func (e FieldErrors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// bind maps the request body onto obj and converts validator failures into field errors.
func bind(ctx *gin.Context, obj any) FieldErrors {
	errs := FieldErrors{}
	if err := ctx.ShouldBind(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs.Add(strings.ToLower(fe.Field()), messageFor(fe))
			}
		} else {
			errs.Add("__all__", "The submitted form could not be read.")
		}
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
