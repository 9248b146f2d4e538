package insight

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/insightboard/core/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "sector", domainRule(models.Sectors))
	mustRegister(v, "region", domainRule(models.Regions))
	mustRegister(v, "pestle", domainRule(models.PestleCategories))
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func domainRule(domain []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return models.InDomain(domain, fl.Field().String())
	}
}

// fieldErrors runs the struct rules on in and reports each failure under
// its JSON name.
func fieldErrors(in *Input) []models.FieldError {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "record", Message: err.Error()}}
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "hexadecimal", "len":
		return "must be a 24-character hex object id"
	case "http_url":
		return "must be a valid HTTP/HTTPS URL"
	case "sector":
		return fmt.Sprintf("%q is not a known sector", fe.Value())
	case "region":
		return fmt.Sprintf("%q is not a known region", fe.Value())
	case "pestle":
		return fmt.Sprintf("%q is not a known pestle category", fe.Value())
	}
	return "failed " + fe.Tag() + " rule"
}
