package apperror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// FieldMessage renders one validator failure as a human readable sentence.
// Field names come from json tags once Init has been called.
func FieldMessage(fe validator.FieldError) string {
	field := formatFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return RequiredField(field).Message
	case "max":
		return TooLongField(field, fe.Param()).Message
	default:
		return InvalidField(field).Message
	}
}

// MapValidationError turns validator errors into a VALIDATION_ERROR AppError
// whose details map each json field to its message.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		details := make(map[string]string, len(errs))
		for _, fe := range errs {
			details[fe.Field()] = FieldMessage(fe)
		}
		first := errs[0]
		return &AppError{
			Code:       CodeValidation,
			Message:    FieldMessage(first),
			HTTPStatus: http.StatusBadRequest,
			Details:    details,
			Err:        err,
		}
	}

	return Wrap(err, CodeValidation, "Invalid input", http.StatusBadRequest)
}
