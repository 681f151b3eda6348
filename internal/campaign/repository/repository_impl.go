package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/internal/campaign/domain"
	"github.com/leadwayhq/leadway/pkg/db/option"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, campaign *domain.Campaign) error {
	return db.WithContext(ctx).Create(campaign).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := db.WithContext(ctx).Where("id = ?", id).Take(&campaign).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := db.WithContext(ctx).Where("slug = ?", slug).Take(&campaign).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCampaignFilter, page pagination.Pagination) ([]*domain.Campaign, error) {
	var campaigns []*domain.Campaign
	stmt := db.WithContext(ctx).Model(&domain.Campaign{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, campaign *domain.Campaign) error {
	return db.WithContext(ctx).
		Model(&domain.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]any{
			"name":        campaign.Name,
			"slug":        campaign.Slug,
			"description": campaign.Description,
			"status":      campaign.Status,
			"starts_at":   campaign.StartsAt,
			"ends_at":     campaign.EndsAt,
			"updated_at":  campaign.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Campaign{}).Error
}
