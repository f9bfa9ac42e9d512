package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var setupOnce sync.Once

// SetupValidator registers JSON field names and the custom tags
// option_type and uuid_or_empty on gin's validator. Safe to call repeatedly.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("option_type", validateOptionType)
		_ = v.RegisterValidation("uuid_or_empty", validateUUIDOrEmpty)
	})
}

func validateOptionType(fl validator.FieldLevel) bool {
	return checkout.ResolutionKind(fl.Field().String()).IsValid()
}

func validateUUIDOrEmpty(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidationDetails converts binding or domain validation failures into response details.
// ok is false when err is neither.
func ValidationDetails(err error) (details []dto.ValidationDetail, ok bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: validationMessage(e),
			})
		}
		return details, true
	}
	var derr *checkout.ValidationError
	if errors.As(err, &derr) {
		for _, d := range derr.Details {
			details = append(details, dto.ValidationDetail{Field: d.Field, Message: d.Message})
		}
		return details, true
	}
	return nil, false
}

// fieldPath drops the struct name validator puts first in the namespace
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return e.Field()
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid", "uuid_or_empty":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "option_type":
		return "Must be one of: refund other_branch wallet"
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
