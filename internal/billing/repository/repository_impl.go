package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", subscription.ID).
		Updates(map[string]any{
			"status":        subscription.Status,
			"price_ref":     subscription.PriceRef,
			"quantity":      subscription.Quantity,
			"trial_ends_at": subscription.TrialEndsAt,
			"ends_at":       subscription.EndsAt,
			"metadata":      subscription.Metadata,
			"updated_at":    subscription.UpdatedAt,
		}).Error
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, items []domain.SubscriptionItem) error {
	if err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&domain.SubscriptionItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) FindByProviderRef(ctx context.Context, db *gorm.DB, provider, providerRef string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at desc, id desc").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]domain.SubscriptionItem, error) {
	var items []domain.SubscriptionItem
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
