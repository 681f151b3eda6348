package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     billingdomain.Repository
	provider billingdomain.ProviderClient
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     billingdomain.Repository
	Provider billingdomain.ProviderClient
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billing.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
	}
}

// ListByAccount implements domain.Service.
func (s *Service) ListByAccount(ctx context.Context, accountID snowflake.ID) ([]billingdomain.Subscription, error) {
	if accountID == 0 {
		return nil, billingdomain.ErrInvalidAccount
	}
	return s.repo.ListByAccount(ctx, s.db, accountID)
}

// ListViewsByAccount implements domain.Service.
func (s *Service) ListViewsByAccount(ctx context.Context, accountID snowflake.ID) ([]billingdomain.SubscriptionView, error) {
	subscriptions, err := s.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	views := make([]billingdomain.SubscriptionView, 0, len(subscriptions))
	for _, sub := range subscriptions {
		items, err := s.repo.ListItems(ctx, s.db, sub.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, s.toView(sub, items))
	}

	return views, nil
}

// ApplyProviderEvent implements domain.Service. It is the single write
// path into the subscription mirror; webhook deliveries may arrive out
// of order or more than once, so the upsert is keyed on provider ref
// and overwrites the whole row each time.
func (s *Service) ApplyProviderEvent(ctx context.Context, event billingdomain.ProviderEvent) error {
	provider := strings.TrimSpace(event.Provider)
	if provider == "" {
		return billingdomain.ErrInvalidEvent
	}

	switch event.Type {
	case billingdomain.EventSubscriptionCreated,
		billingdomain.EventSubscriptionUpdated,
		billingdomain.EventSubscriptionDeleted:
	default:
		s.log.Debug("ignoring provider event",
			zap.String("provider", provider),
			zap.String("event_type", event.Type),
		)
		return nil
	}

	providerRef := strings.TrimSpace(event.Subscription.ProviderRef)
	if providerRef == "" {
		return billingdomain.ErrInvalidEvent
	}

	accountID, err := snowflake.ParseString(strings.TrimSpace(event.Subscription.AccountID))
	if err != nil || accountID == 0 {
		return billingdomain.ErrInvalidAccount
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByProviderRef(ctx, tx, provider, providerRef)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		row := s.fromProvider(provider, accountID, event.Subscription, now)

		if event.Type == billingdomain.EventSubscriptionDeleted {
			row.Status = billingdomain.SubscriptionStatusCanceled
			if row.EndsAt == nil {
				endsAt := now
				row.EndsAt = &endsAt
			}
		}

		if existing == nil {
			row.ID = s.genID.Generate()
			row.CreatedAt = now
			if err := s.repo.Insert(ctx, tx, &row); err != nil {
				return err
			}
		} else {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, tx, &row); err != nil {
				return err
			}
		}

		items := make([]billingdomain.SubscriptionItem, 0, len(event.Subscription.Items))
		for _, item := range event.Subscription.Items {
			items = append(items, billingdomain.SubscriptionItem{
				ID:              s.genID.Generate(),
				SubscriptionID:  row.ID,
				ProviderItemRef: item.ProviderItemRef,
				ProductRef:      item.ProductRef,
				PriceRef:        item.PriceRef,
				Quantity:        item.Quantity,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}

		return s.repo.ReplaceItems(ctx, tx, row.ID, items)
	})
}

// Cancel implements domain.Service. The provider is asked to cancel at
// period end, then the mirror is updated from the provider's response so
// reads stay consistent without waiting for the webhook.
func (s *Service) Cancel(ctx context.Context, req billingdomain.CancelRequest) (*billingdomain.SubscriptionView, error) {
	sub, err := s.findOwned(ctx, req.AccountID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	switch sub.Status {
	case billingdomain.SubscriptionStatusActive, billingdomain.SubscriptionStatusTrialing:
	default:
		return nil, billingdomain.ErrNotCancelable
	}

	remote, err := s.provider.CancelAtPeriodEnd(ctx, sub.ProviderRef)
	if err != nil {
		return nil, err
	}

	return s.applyRemote(ctx, sub, remote)
}

// Resume implements domain.Service. Only a canceled subscription that is
// still inside its paid period can pick back up.
func (s *Service) Resume(ctx context.Context, req billingdomain.ResumeRequest) (*billingdomain.SubscriptionView, error) {
	sub, err := s.findOwned(ctx, req.AccountID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	if !s.onGrace(*sub) {
		return nil, billingdomain.ErrNotResumable
	}

	remote, err := s.provider.Resume(ctx, sub.ProviderRef)
	if err != nil {
		return nil, err
	}

	return s.applyRemote(ctx, sub, remote)
}

func (s *Service) findOwned(ctx context.Context, accountID snowflake.ID, subscriptionID string) (*billingdomain.Subscription, error) {
	if accountID == 0 {
		return nil, billingdomain.ErrInvalidAccount
	}

	id, err := snowflake.ParseString(strings.TrimSpace(subscriptionID))
	if err != nil {
		return nil, billingdomain.ErrInvalidSubscription
	}

	sub, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.AccountID != accountID {
		return nil, billingdomain.ErrSubscriptionNotFound
	}

	return sub, nil
}

func (s *Service) applyRemote(ctx context.Context, sub *billingdomain.Subscription, remote *billingdomain.ProviderSubscription) (*billingdomain.SubscriptionView, error) {
	now := s.clock.Now()
	sub.Status = billingdomain.SubscriptionStatus(remote.Status)
	sub.PriceRef = remote.PriceRef
	sub.Quantity = remote.Quantity
	sub.TrialEndsAt = remote.TrialEndsAt
	sub.EndsAt = remote.EndsAt
	sub.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, sub); err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, s.db, sub.ID)
	if err != nil {
		return nil, err
	}

	view := s.toView(*sub, items)
	return &view, nil
}

func (s *Service) fromProvider(provider string, accountID snowflake.ID, ps billingdomain.ProviderSubscription, now time.Time) billingdomain.Subscription {
	var metadata datatypes.JSONMap
	if len(ps.Metadata) > 0 {
		metadata = datatypes.JSONMap(ps.Metadata)
	}

	return billingdomain.Subscription{
		AccountID:   accountID,
		Provider:    provider,
		ProviderRef: ps.ProviderRef,
		Status:      billingdomain.SubscriptionStatus(ps.Status),
		PriceRef:    ps.PriceRef,
		Quantity:    ps.Quantity,
		TrialEndsAt: ps.TrialEndsAt,
		EndsAt:      ps.EndsAt,
		Metadata:    metadata,
		UpdatedAt:   now,
	}
}

func (s *Service) toView(sub billingdomain.Subscription, items []billingdomain.SubscriptionItem) billingdomain.SubscriptionView {
	return billingdomain.SubscriptionView{
		ID:          sub.ID.String(),
		ProviderRef: sub.ProviderRef,
		Status:      sub.Status,
		PriceRef:    sub.PriceRef,
		Quantity:    sub.Quantity,
		TrialEndsAt: sub.TrialEndsAt,
		EndsAt:      sub.EndsAt,
		OnGrace:     s.onGrace(sub),
		Items:       items,
	}
}

func (s *Service) onGrace(sub billingdomain.Subscription) bool {
	return sub.Status == billingdomain.SubscriptionStatusCanceled &&
		sub.EndsAt != nil &&
		sub.EndsAt.After(s.clock.Now())
}
