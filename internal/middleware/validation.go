package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// codeRe accepts a presented access code before normalization: letters
// and digits only, with surrounding whitespace tolerated.
var codeRe = regexp.MustCompile(`^\s*[a-zA-Z0-9]{4,16}\s*$`)

// RegisterValidators installs the binding-level validators shared by all
// request payloads. Call once at startup.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	if err := v.RegisterValidation("accesscode", func(fl validator.FieldLevel) bool {
		return codeRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	// Report field names as their JSON keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}
