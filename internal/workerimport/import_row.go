package workerimport

import (
	"errors"
	"strings"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	workererrors "github.com/OlegKumachev/kiout-test-backend/internal/worker/errors"

	"github.com/go-playground/validator/v10"
)

const (
	ColumnFirstName  = "first_name"
	ColumnMiddleName = "middle_name"
	ColumnLastName   = "last_name"
	ColumnEmail      = "email"
	ColumnPosition   = "position"
	ColumnIsActive   = "is_active"
)

// Columns is the row schema in export order.
var Columns = []string{
	ColumnFirstName,
	ColumnMiddleName,
	ColumnLastName,
	ColumnEmail,
	ColumnPosition,
	ColumnIsActive,
}

// RawRow maps a normalized column name to the cell text.
type RawRow map[string]string

// ImportRow is a decoded row. Nil fields were not supplied and are left
// untouched on update. An empty MiddleName or Position clears the field.
type ImportRow struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=50"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=50"`
	LastName   *string `json:"last_name" validate:"omitempty,max=50"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"is_active"`
}

var rowValidate = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	apperror.RegisterJSONTagNames(v)
	return v
}

var (
	truthy = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true, "да": true, "д": true}
	falsy  = map[string]bool{"0": true, "false": true, "f": true, "no": true, "n": true, "нет": true, "н": true}
)

// ParseBool accepts the spellings spreadsheets tend to produce.
func ParseBool(raw string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case truthy[v]:
		return true, true
	case falsy[v]:
		return false, true
	default:
		return false, false
	}
}

func optional(raw RawRow, column string) *string {
	v, ok := raw[column]
	if !ok {
		return nil
	}
	v = unescapeFormula(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	return &v
}

// clearable is optional for columns that may be blanked: a present but
// empty cell yields "" instead of nil.
func clearable(raw RawRow, column string) *string {
	v, ok := raw[column]
	if !ok {
		return nil
	}
	v = unescapeFormula(strings.TrimSpace(v))
	return &v
}

// ParseRow coerces a raw row. Unknown columns are ignored. The returned error
// is a worker validation error with per-field details.
func ParseRow(raw RawRow) (ImportRow, error) {
	row := ImportRow{
		FirstName:  optional(raw, ColumnFirstName),
		MiddleName: clearable(raw, ColumnMiddleName),
		LastName:   optional(raw, ColumnLastName),
		Email:      worker.NormalizeEmail(raw[ColumnEmail]),
		Position:   clearable(raw, ColumnPosition),
	}

	details := map[string]string{}

	if v := optional(raw, ColumnIsActive); v != nil {
		active, ok := ParseBool(*v)
		if !ok {
			details[ColumnIsActive] = apperror.InvalidField("Is Active").Message
		} else {
			row.IsActive = &active
		}
	}

	var verrs validator.ValidationErrors
	if err := rowValidate.Struct(row); errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = apperror.FieldMessage(fe)
		}
	}

	if len(details) > 0 {
		return row, workererrors.ErrValidation.WithDetails(details, nil)
	}
	return row, nil
}

func (r ImportRow) createRequest() worker.CreateWorkerRequest {
	req := worker.CreateWorkerRequest{
		Email:    r.Email,
		IsActive: r.IsActive,
	}
	if r.FirstName != nil {
		req.FirstName = *r.FirstName
	}
	if r.MiddleName != nil {
		req.MiddleName = *r.MiddleName
	}
	if r.LastName != nil {
		req.LastName = *r.LastName
	}
	if r.Position != nil {
		req.Position = *r.Position
	}
	return req
}

func (r ImportRow) updateRequest() worker.UpdateWorkerRequest {
	return worker.UpdateWorkerRequest{
		FirstName:  r.FirstName,
		MiddleName: r.MiddleName,
		LastName:   r.LastName,
		Position:   r.Position,
		IsActive:   r.IsActive,
	}
}
