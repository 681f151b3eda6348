package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/leadwayhq/leadway/internal/campaign/domain"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("campaign.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCampaignRequest) (domain.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Campaign{}, domain.ErrInvalidName
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return domain.Campaign{}, domain.ErrInvalidSchedule
	}

	slugged, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return domain.Campaign{}, err
	}

	now := s.clock.Now()
	campaign := domain.Campaign{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        slugged,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.CampaignStatusDraft,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &campaign); err != nil {
		return domain.Campaign{}, err
	}

	return campaign, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCampaignRequest) (domain.ListCampaignResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListCampaignResponse{}, domain.ErrInvalidStatus
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListCampaignFilter{Status: req.Status}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListCampaignResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(campaign *domain.Campaign) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        campaign.ID.String(),
			CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	campaigns := make([]domain.Campaign, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		campaigns = append(campaigns, *item)
	}

	resp := domain.ListCampaignResponse{Campaigns: campaigns}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetBySlug(ctx context.Context, raw string) (domain.Campaign, error) {
	slugged := strings.TrimSpace(strings.ToLower(raw))
	if slugged == "" {
		return domain.Campaign{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindBySlug(ctx, s.db, slugged)
	if err != nil {
		return domain.Campaign{}, err
	}
	if item == nil {
		return domain.Campaign{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCampaignRequest) (domain.Campaign, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Campaign{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if item == nil {
		return domain.Campaign{}, domain.ErrNotFound
	}
	if item.Status == domain.CampaignStatusArchived {
		return domain.Campaign{}, domain.ErrCampaignArchived
	}

	if name := strings.TrimSpace(req.Name); name != "" && name != item.Name {
		slugged, err := s.uniqueSlug(ctx, name)
		if err != nil {
			return domain.Campaign{}, err
		}
		item.Name = name
		item.Slug = slugged
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		item.Description = description
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return domain.Campaign{}, domain.ErrInvalidStatus
		}
		item.Status = req.Status
	}
	if req.StartsAt != nil {
		item.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		item.EndsAt = req.EndsAt
	}
	if item.StartsAt != nil && item.EndsAt != nil && item.EndsAt.Before(*item.StartsAt) {
		return domain.Campaign{}, domain.ErrInvalidSchedule
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Campaign{}, err
	}

	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, parsed)
}

// uniqueSlug derives a URL slug from the name, appending a numeric
// suffix until it is free.
func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}

	candidate := base
	for i := 2; ; i++ {
		existing, err := s.repo.FindBySlug(ctx, s.db, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
