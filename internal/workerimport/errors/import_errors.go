package importerrors

import (
	"net/http"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
)

var (
	ErrMalformedBatch = apperror.New(
		apperror.CodeMalformedBatch,
		"The uploaded file could not be read",
		http.StatusBadRequest,
	)
	ErrUnsupportedFormat = apperror.New(
		apperror.CodeMalformedBatch,
		"Unsupported file format, expected .xlsx, .xls or .csv",
		http.StatusBadRequest,
	)
	ErrFileRequired = apperror.New(
		apperror.CodeMalformedBatch,
		"File is required",
		http.StatusBadRequest,
	)
	ErrMissingEmailColumn = apperror.New(
		apperror.CodeMalformedBatch,
		"The header row must contain an email column",
		http.StatusBadRequest,
	)
	ErrFileTooLarge = apperror.New(
		apperror.CodePayloadTooLarge,
		"The uploaded file is too large",
		http.StatusRequestEntityTooLarge,
	)
	ErrInvalidExportFormat = apperror.New(
		apperror.CodeInvalidInput,
		"Export format must be xlsx or csv",
		http.StatusBadRequest,
	)
)
