package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/billing/repository"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeProvider struct {
	canceled []string
	resumed  []string
	remote   *billingdomain.ProviderSubscription
	err      error
}

func (f *fakeProvider) ListPlans(ctx context.Context) ([]billingdomain.Plan, error) {
	return nil, nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req billingdomain.CheckoutSessionRequest) (*billingdomain.RedirectSession, error) {
	return &billingdomain.RedirectSession{URL: "https://billing.example/checkout"}, nil
}

func (f *fakeProvider) CreatePortalSession(ctx context.Context, req billingdomain.PortalSessionRequest) (*billingdomain.RedirectSession, error) {
	return &billingdomain.RedirectSession{URL: "https://billing.example/portal"}, nil
}

func (f *fakeProvider) CancelAtPeriodEnd(ctx context.Context, providerRef string) (*billingdomain.ProviderSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.canceled = append(f.canceled, providerRef)
	return f.remote, nil
}

func (f *fakeProvider) Resume(ctx context.Context, providerRef string) (*billingdomain.ProviderSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.resumed = append(f.resumed, providerRef)
	return f.remote, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&billingdomain.Subscription{},
		&billingdomain.SubscriptionItem{},
	))

	return db
}

func newTestService(t *testing.T, db *gorm.DB, fc *clock.FakeClock, provider billingdomain.ProviderClient) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:       db,
		log:      zap.NewNop(),
		genID:    node,
		clock:    fc,
		repo:     repository.Provide(),
		provider: provider,
	}
}

func TestApplyProviderEventCreatesMirror(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	svc := newTestService(t, db, fc, &fakeProvider{})

	accountID := svc.genID.Generate()
	trialEnd := now.Add(14 * 24 * time.Hour)

	err := svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_001",
			AccountID:   accountID.String(),
			Status:      "trialing",
			PriceRef:    "price_basic",
			Quantity:    1,
			TrialEndsAt: &trialEnd,
			Items: []billingdomain.ProviderSubscriptionItem{
				{ProviderItemRef: "si_001", ProductRef: "prod_basic", PriceRef: "price_basic", Quantity: 1},
			},
		},
	})
	require.NoError(t, err)

	subs, err := svc.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, billingdomain.SubscriptionStatusTrialing, subs[0].Status)
	assert.Equal(t, "sub_001", subs[0].ProviderRef)

	views, err := svc.ListViewsByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Items, 1)
	assert.Equal(t, "si_001", views[0].Items[0].ProviderItemRef)
	assert.False(t, views[0].OnGrace)
}

func TestApplyProviderEventUpsertsByProviderRef(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	svc := newTestService(t, db, fc, &fakeProvider{})

	accountID := svc.genID.Generate()

	create := billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_002",
			AccountID:   accountID.String(),
			Status:      "trialing",
			PriceRef:    "price_basic",
			Quantity:    1,
		},
	}
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), create))

	update := create
	update.Type = billingdomain.EventSubscriptionUpdated
	update.Subscription.Status = "active"
	update.Subscription.PriceRef = "price_pro"
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), update))

	subs, err := svc.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, subs[0].Status)
	assert.Equal(t, "price_pro", subs[0].PriceRef)
}

func TestApplyProviderEventDeletedMarksCanceled(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	svc := newTestService(t, db, fc, &fakeProvider{})

	accountID := svc.genID.Generate()
	endsAt := now.Add(20 * 24 * time.Hour)

	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_003",
			AccountID:   accountID.String(),
			Status:      "active",
			Quantity:    1,
		},
	}))

	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionDeleted,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_003",
			AccountID:   accountID.String(),
			Status:      "canceled",
			Quantity:    1,
			EndsAt:      &endsAt,
		},
	}))

	views, err := svc.ListViewsByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, billingdomain.SubscriptionStatusCanceled, views[0].Status)
	assert.True(t, views[0].OnGrace)
}

func TestApplyProviderEventIgnoresUnknownType(t *testing.T) {
	db := setupTestDB(t)
	fc := clock.NewFakeClock(time.Now().UTC())
	svc := newTestService(t, db, fc, &fakeProvider{})

	err := svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     "invoice.payment_succeeded",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&billingdomain.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyProviderEventRejectsBadAccount(t *testing.T) {
	db := setupTestDB(t)
	fc := clock.NewFakeClock(time.Now().UTC())
	svc := newTestService(t, db, fc, &fakeProvider{})

	err := svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_004",
			AccountID:   "not-an-id",
		},
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidAccount)
}

func TestCancelActiveSubscription(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	endsAt := now.Add(30 * 24 * time.Hour)
	provider := &fakeProvider{
		remote: &billingdomain.ProviderSubscription{
			ProviderRef: "sub_005",
			Status:      "canceled",
			PriceRef:    "price_pro",
			Quantity:    1,
			EndsAt:      &endsAt,
		},
	}
	svc := newTestService(t, db, fc, provider)

	accountID := svc.genID.Generate()
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_005",
			AccountID:   accountID.String(),
			Status:      "active",
			PriceRef:    "price_pro",
			Quantity:    1,
		},
	}))

	subs, err := svc.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)

	view, err := svc.Cancel(context.Background(), billingdomain.CancelRequest{
		AccountID:      accountID,
		SubscriptionID: subs[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_005"}, provider.canceled)
	assert.Equal(t, billingdomain.SubscriptionStatusCanceled, view.Status)
	assert.True(t, view.OnGrace)
}

func TestCancelRejectsAlreadyCanceled(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	svc := newTestService(t, db, fc, &fakeProvider{})

	accountID := svc.genID.Generate()
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_006",
			AccountID:   accountID.String(),
			Status:      "canceled",
			Quantity:    1,
		},
	}))

	subs, err := svc.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), billingdomain.CancelRequest{
		AccountID:      accountID,
		SubscriptionID: subs[0].ID.String(),
	})
	assert.ErrorIs(t, err, billingdomain.ErrNotCancelable)
}

func TestResumeRequiresGracePeriod(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	endsAt := now.Add(10 * 24 * time.Hour)
	provider := &fakeProvider{
		remote: &billingdomain.ProviderSubscription{
			ProviderRef: "sub_007",
			Status:      "active",
			Quantity:    1,
		},
	}
	svc := newTestService(t, db, fc, provider)

	accountID := svc.genID.Generate()
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionCreated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_007",
			AccountID:   accountID.String(),
			Status:      "canceled",
			Quantity:    1,
			EndsAt:      &endsAt,
		},
	}))

	subs, err := svc.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)

	view, err := svc.Resume(context.Background(), billingdomain.ResumeRequest{
		AccountID:      accountID,
		SubscriptionID: subs[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, view.Status)

	// Past the grace window resume is refused.
	fc.Advance(30 * 24 * time.Hour)
	require.NoError(t, svc.ApplyProviderEvent(context.Background(), billingdomain.ProviderEvent{
		Provider: "stripe",
		Type:     billingdomain.EventSubscriptionUpdated,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: "sub_007",
			AccountID:   accountID.String(),
			Status:      "canceled",
			Quantity:    1,
			EndsAt:      &endsAt,
		},
	}))

	_, err = svc.Resume(context.Background(), billingdomain.ResumeRequest{
		AccountID:      accountID,
		SubscriptionID: subs[0].ID.String(),
	})
	assert.ErrorIs(t, err, billingdomain.ErrNotResumable)
}

func TestCancelUnknownSubscription(t *testing.T) {
	db := setupTestDB(t)
	fc := clock.NewFakeClock(time.Now().UTC())
	svc := newTestService(t, db, fc, &fakeProvider{})

	_, err := svc.Cancel(context.Background(), billingdomain.CancelRequest{
		AccountID:      svc.genID.Generate(),
		SubscriptionID: "123456789",
	})
	assert.ErrorIs(t, err, billingdomain.ErrSubscriptionNotFound)
}
