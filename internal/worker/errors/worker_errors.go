package workererrors

import (
	"net/http"

	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"
)

var (
	ErrWorkerNotFound = apperror.New(
		apperror.CodeNotFound,
		"Worker not found",
		http.StatusNotFound,
	)
	ErrWorkerAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"Worker with the same email already exists",
		http.StatusConflict,
	)
	ErrValidation = apperror.New(
		apperror.CodeValidation,
		"Worker data is invalid",
		http.StatusBadRequest,
	)
	ErrInvalidWorkerID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid worker ID",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid acting user ID",
		http.StatusBadRequest,
	)
)
