package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/khoahotran/devconnector/pkg/apperror"
)

var registerTagNameOnce sync.Once

// useJSONFieldNames makes validator report fields by their JSON name, which
// is what clients see in the "param" of a validation error.
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// secretParams are never echoed back in a validation error.
var secretParams = map[string]bool{"password": true}

// bindingError turns a ShouldBindJSON failure into the field error list.
// messages maps a JSON field name to the message shown for any rule it fails.
func bindingError(err error, messages map[string]string) *apperror.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.NewValidation(apperror.FieldError{Msg: "Invalid request body", Location: "body"})
	}

	out := make([]apperror.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		fieldErr := apperror.FieldError{Msg: msg, Param: fe.Field(), Location: "body"}
		if !secretParams[fe.Field()] {
			fieldErr.Value = fe.Value()
		}
		out = append(out, fieldErr)
	}
	return apperror.NewValidation(out...)
}
