package internal

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var memoryPattern = regexp.MustCompile(`^[0-9]*([0-9]+[KMGT])?$`)

func NewValidator() *validator.Validate {
	v := validator.New()

	// Report violations under the form field name, not the Go field name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"nonewline": validateNoNewline,
		"slurmmem":  validateMemory,
		"urlpath":   validateURLPath,
	}
	for name, rule := range rules {
		err := v.RegisterValidation(name, rule)
		if err != nil {
			panic(err)
		}
	}
	return v
}

func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err != nil {
		return err
	}
	return nil
}

// Newlines in free-text fields would let a request smuggle extra lines into a
// generated batch script.
func validateNoNewline(fl validator.FieldLevel) bool {
	return !strings.ContainsRune(fl.Field().String(), '\n')
}

// Scheduler memory syntax: digits with an optional K/M/G/T suffix. The empty
// string is allowed and means "use the partition default".
func validateMemory(fl validator.FieldLevel) bool {
	return memoryPattern.MatchString(fl.Field().String())
}

// Empty or an absolute URL path.
func validateURLPath(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || strings.HasPrefix(value, "/")
}
