package domain

import (
	"context"
	"errors"
	"time"

	"github.com/leadwayhq/leadway/pkg/db/pagination"
)

type ListLeadRequest struct {
	PageToken   string
	PageSize    int32
	Status      LeadStatus
	Source      string
	OwnerID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListLeadFilter struct {
	Status      LeadStatus
	Source      string
	OwnerID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListLeadResponse struct {
	pagination.PageInfo
	Leads []Lead `json:"leads"`
}

type CreateLeadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Source  string `json:"source"`
	OwnerID string `json:"owner_id"`
	Notes   string `json:"notes"`
}

type UpdateLeadRequest struct {
	ID      string `json:"-"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Source  string `json:"source"`
	Notes   string `json:"notes"`
}

type TransitionRequest struct {
	ID     string     `json:"-"`
	Status LeadStatus `json:"status"`
}

type Service interface {
	Create(context.Context, CreateLeadRequest) (Lead, error)
	List(context.Context, ListLeadRequest) (ListLeadResponse, error)
	GetByID(ctx context.Context, id string) (Lead, error)
	Update(context.Context, UpdateLeadRequest) (Lead, error)
	Transition(context.Context, TransitionRequest) (Lead, error)
	Convert(ctx context.Context, id string) (Lead, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("not_found")
)
