package worker

import (
	"errors"
	"sort"
	"strings"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	apperror.RegisterJSONTagNames(v)
	return v
}

// workerFields mirrors the column limits of the workers table. last_name is
// only mandatory for API creation, see CreateWorkerRequest.
type workerFields struct {
	FirstName  string `json:"first_name" validate:"required,max=50"`
	MiddleName string `json:"middle_name" validate:"max=50"`
	LastName   string `json:"last_name" validate:"max=50"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Position   string `json:"position" validate:"max=100"`
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateWorker(w *Worker) error {
	err := validate.Struct(workerFields{
		FirstName:  w.FirstName,
		MiddleName: w.MiddleName,
		LastName:   w.LastName,
		Email:      w.Email,
		Position:   w.Position,
	})
	if err == nil {
		return nil
	}

	var mapped *apperror.AppError
	if errors.As(apperror.MapValidationError(err), &mapped) {
		return workererrors.ErrValidation.WithDetails(mapped.Details, err)
	}
	return workererrors.ErrValidation.WithDetails(nil, err)
}

// ValidationMessages flattens the per-field details of a validation error,
// ordered by field name. It returns nil for other errors.
func ValidationMessages(err error) []string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeValidation {
		return nil
	}
	details, ok := appErr.Details.(map[string]string)
	if !ok {
		return nil
	}

	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, details[f])
	}
	return msgs
}
