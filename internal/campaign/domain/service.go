package domain

import (
	"context"
	"errors"
	"time"

	"github.com/leadwayhq/leadway/pkg/db/pagination"
)

type ListCampaignRequest struct {
	PageToken string
	PageSize  int32
	Status    CampaignStatus
}

type ListCampaignFilter struct {
	Status CampaignStatus
}

type ListCampaignResponse struct {
	pagination.PageInfo
	Campaigns []Campaign `json:"campaigns"`
}

type CreateCampaignRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type UpdateCampaignRequest struct {
	ID          string         `json:"-"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      CampaignStatus `json:"status"`
	StartsAt    *time.Time     `json:"starts_at"`
	EndsAt      *time.Time     `json:"ends_at"`
}

type Service interface {
	Create(context.Context, CreateCampaignRequest) (Campaign, error)
	List(context.Context, ListCampaignRequest) (ListCampaignResponse, error)
	GetBySlug(ctx context.Context, slug string) (Campaign, error)
	Update(context.Context, UpdateCampaignRequest) (Campaign, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidSchedule  = errors.New("invalid_schedule")
	ErrNotFound         = errors.New("not_found")
	ErrDuplicateName    = errors.New("duplicate_name")
	ErrCampaignArchived = errors.New("campaign_archived")
)
