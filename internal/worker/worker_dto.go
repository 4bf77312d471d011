package worker

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// CreateWorkerRequest is shared by the API and the import pipeline. The binding
// tags apply to API requests only.
type CreateWorkerRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Position   string `json:"position"`
	IsActive   *bool  `json:"is_active"`
}

// UpdateWorkerRequest is a partial update. Nil fields are left untouched.
type UpdateWorkerRequest struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Position   *string `json:"position"`
	IsActive   *bool   `json:"is_active"`
}

// WorkerResponse is the short shape used by list endpoints.
type WorkerResponse struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Position   string `json:"position"`
	IsActive   bool   `json:"is_active"`
}

type WorkerDetailResponse struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Position   string    `json:"position"`
	IsActive   bool      `json:"is_active"`
	HiredDate  time.Time `json:"hired_date"`
	CreatedBy  *string   `json:"created_by"`
}

func (d WorkerDetailResponse) Short() WorkerResponse {
	return WorkerResponse{
		ID:         d.ID,
		FirstName:  d.FirstName,
		MiddleName: d.MiddleName,
		LastName:   d.LastName,
		Position:   d.Position,
		IsActive:   d.IsActive,
	}
}

// ListFilter is a conjunction of the predicates that are set.
type ListFilter struct {
	IsActive *bool
	Position *string
	Q        string
}

// CacheField identifies the filter inside the list cache hash.
func (f ListFilter) CacheField() string {
	active := "any"
	if f.IsActive != nil {
		active = strconv.FormatBool(*f.IsActive)
	}
	position := "any"
	if f.Position != nil {
		position = "eq." + url.QueryEscape(*f.Position)
	}
	return fmt.Sprintf("active=%s:position=%s:q=%s", active, position, url.QueryEscape(f.Q))
}
