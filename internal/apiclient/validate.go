package apiclient

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"transcribe/internal/jobs"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("youtube", func(fl validator.FieldLevel) bool {
			return jobs.IsYouTubeURL(fl.Field().String())
		})
	})
	return validate
}

func validateStruct(v any) error {
	return validatorInstance().Struct(v)
}

// ValidRating reports whether rating is within the accepted 0..5 range.
func ValidRating(rating int) bool {
	return validateStruct(ratingRequest{Rating: rating}) == nil
}
