package checkout

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-checkout/internal/taxid"
)

// NewValidator returns a validator that reports fields by their JSON names
// and understands the taxnumber tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("taxnumber", func(fl validator.FieldLevel) bool {
		return taxid.Valid(fl.Field().String())
	})
	return v
}

// validationDetails maps each failing field to a readable message.
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return details
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "gt":
		return "This value should be greater than " + fe.Param() + "."
	case "taxnumber":
		return "Invalid tax number format."
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "This value is not valid."
	}
}
