package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProviderSubscription is the provider-side view carried by webhook
// events and provider API responses.
type ProviderSubscription struct {
	ProviderRef string
	AccountID   string
	Status      string
	PriceRef    string
	Quantity    int
	TrialEndsAt *time.Time
	EndsAt      *time.Time
	Items       []ProviderSubscriptionItem
	Metadata    map[string]any
}

type ProviderSubscriptionItem struct {
	ProviderItemRef string
	ProductRef      string
	PriceRef        string
	Quantity        int
}

// ProviderEvent is one normalized billing-provider webhook delivery.
type ProviderEvent struct {
	Provider     string
	Type         string
	Subscription ProviderSubscription
}

// Event types the snapshot store reacts to. Anything else is ignored.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type CancelRequest struct {
	AccountID      snowflake.ID
	SubscriptionID string
}

type ResumeRequest struct {
	AccountID      snowflake.ID
	SubscriptionID string
}

type SubscriptionView struct {
	ID          string             `json:"id"`
	ProviderRef string             `json:"provider_ref"`
	Status      SubscriptionStatus `json:"status"`
	PriceRef    string             `json:"price_ref"`
	Quantity    int                `json:"quantity"`
	TrialEndsAt *time.Time         `json:"trial_ends_at,omitempty"`
	EndsAt      *time.Time         `json:"ends_at,omitempty"`
	OnGrace     bool               `json:"on_grace_period"`
	Items       []SubscriptionItem `json:"items,omitempty"`
}

type Service interface {
	ListByAccount(ctx context.Context, accountID snowflake.ID) ([]Subscription, error)
	ListViewsByAccount(ctx context.Context, accountID snowflake.ID) ([]SubscriptionView, error)
	ApplyProviderEvent(ctx context.Context, event ProviderEvent) error
	Cancel(ctx context.Context, req CancelRequest) (*SubscriptionView, error)
	Resume(ctx context.Context, req ResumeRequest) (*SubscriptionView, error)
}

var (
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidEvent         = errors.New("invalid_event")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrNotCancelable        = errors.New("subscription_not_cancelable")
	ErrNotResumable         = errors.New("subscription_not_resumable")
)
