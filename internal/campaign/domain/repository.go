package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Campaign, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Campaign, error)
	List(ctx context.Context, db *gorm.DB, filter ListCampaignFilter, page pagination.Pagination) ([]*Campaign, error)
	Update(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
