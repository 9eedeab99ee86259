package comments

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"golang.org/x/text/unicode/norm"

	"github.com/aqanja/blog-api/internal/shared"
)

var fieldMessages = map[string]string{
	"post_slug.notblank": "Post slug is required",
	"post_slug.max":      "Post slug must be at most 200 characters",
	"content.notblank":   "Content is required",
	"content.max":        "Content must be at most 5000 characters",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// normalize canonicalises user input before validation.
func normalize(in CreateInput) CreateInput {
	return CreateInput{
		PostSlug: strings.TrimSpace(in.PostSlug),
		Content:  norm.NFC.String(in.Content),
	}
}

func validateInput(v *validator.Validate, in CreateInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make([]shared.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out = append(out, shared.FieldError{Field: fe.Field(), Message: msg})
	}
	return shared.NewValidationError(out...)
}
