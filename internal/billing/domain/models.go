// Package domain contains persistence models for billing snapshots.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus mirrors the billing provider's lifecycle states.
// Values land verbatim from webhook payloads, so unknown strings are
// possible and must be tolerated.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
)

// Subscription is a local mirror of one provider-side subscription.
// It is written only by provider event ingestion; everything else reads.
type Subscription struct {
	ID          snowflake.ID       `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID       `gorm:"not null;index" json:"account_id"`
	Provider    string             `gorm:"type:text;not null;uniqueIndex:ux_subscriptions_provider_ref,priority:1" json:"provider"`
	ProviderRef string             `gorm:"type:text;not null;uniqueIndex:ux_subscriptions_provider_ref,priority:2" json:"provider_ref"`
	Status      SubscriptionStatus `gorm:"type:text;not null;index" json:"status"`
	PriceRef    string             `gorm:"type:text" json:"price_ref"`
	Quantity    int                `gorm:"not null;default:1" json:"quantity"`
	TrialEndsAt *time.Time         `gorm:"" json:"trial_ends_at,omitempty"`
	EndsAt      *time.Time         `gorm:"" json:"ends_at,omitempty"`
	Metadata    datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionItem records provider product/price lines. Purely
// descriptive; entitlement never looks at items.
type SubscriptionItem struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID  snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	ProviderItemRef string       `gorm:"type:text;not null" json:"provider_item_ref"`
	ProductRef      string       `gorm:"type:text" json:"product_ref"`
	PriceRef        string       `gorm:"type:text" json:"price_ref"`
	Quantity        int          `gorm:"not null;default:1" json:"quantity"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SubscriptionItem) TableName() string { return "subscription_items" }
