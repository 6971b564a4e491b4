package middleware

import (
	"encoding/base64"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs domain validation rules on gin's binding
// engine and makes validation errors report JSON field names instead of
// Go struct field names.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Signatures arrive as base64-encoded PNG images.
	_ = v.RegisterValidation("b64sig", func(fl validator.FieldLevel) bool {
		_, err := base64.StdEncoding.DecodeString(fl.Field().String())
		return err == nil
	})
}
