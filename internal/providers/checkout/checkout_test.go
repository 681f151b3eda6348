package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/billing/repository"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/config"
)

func newTestClient(t *testing.T) (*Client, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&billingdomain.Subscription{},
		&billingdomain.SubscriptionItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		BillingProvider:      "stripe",
		BillingPortalBaseURL: "https://billing.example.com/portal",
	}

	client := NewClient(cfg, zap.NewNop(), db, node, clk, repository.Provide())
	return client, db, clk
}

func seedSubscription(t *testing.T, db *gorm.DB, status billingdomain.SubscriptionStatus, endsAt *time.Time) *billingdomain.Subscription {
	t.Helper()

	sub := &billingdomain.Subscription{
		ID:          snowflake.ID(1001),
		AccountID:   snowflake.ID(42),
		Provider:    "stripe",
		ProviderRef: "sub_test_1",
		Status:      status,
		PriceRef:    "price_growth_monthly",
		Quantity:    1,
		EndsAt:      endsAt,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestListPlansReturnsCatalog(t *testing.T) {
	client, _, _ := newTestClient(t)

	plans, err := client.ListPlans(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, plans)

	for _, plan := range plans {
		assert.NotEmpty(t, plan.PriceRef)
		assert.NotEmpty(t, plan.Name)
		assert.Greater(t, plan.AmountCents, int64(0))
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	client, _, _ := newTestClient(t)

	session, err := client.CreateCheckoutSession(context.Background(), billingdomain.CheckoutSessionRequest{
		AccountID:  "42",
		Email:      "owner@example.com",
		PriceRef:   "price_growth_monthly",
		SuccessURL: "https://app.example.com/subscription/success",
		CancelURL:  "https://app.example.com/subscription/plans",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(session.URL, "https://billing.example.com/portal/checkout/cs_"))
	assert.Contains(t, session.URL, "price=price_growth_monthly")
	assert.Contains(t, session.URL, "client_reference_id=42")
}

func TestCreateCheckoutSessionUnknownPlan(t *testing.T) {
	client, _, _ := newTestClient(t)

	_, err := client.CreateCheckoutSession(context.Background(), billingdomain.CheckoutSessionRequest{
		AccountID: "42",
		PriceRef:  "price_does_not_exist",
	})
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCreatePortalSession(t *testing.T) {
	client, _, _ := newTestClient(t)

	session, err := client.CreatePortalSession(context.Background(), billingdomain.PortalSessionRequest{
		AccountID: "42",
		ReturnURL: "https://app.example.com/subscription",
	})
	require.NoError(t, err)
	assert.Contains(t, session.URL, "https://billing.example.com/portal?")
	assert.Contains(t, session.URL, "customer=42")
}

func TestCreatePortalSessionUnconfigured(t *testing.T) {
	client, _, _ := newTestClient(t)
	client.cfg.BillingPortalBaseURL = ""

	_, err := client.CreatePortalSession(context.Background(), billingdomain.PortalSessionRequest{AccountID: "42"})
	assert.ErrorIs(t, err, ErrPortalUnavailable)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	client, db, clk := newTestClient(t)
	seedSubscription(t, db, billingdomain.SubscriptionStatusActive, nil)

	remote, err := client.CancelAtPeriodEnd(context.Background(), "sub_test_1")
	require.NoError(t, err)

	assert.Equal(t, string(billingdomain.SubscriptionStatusCanceled), remote.Status)
	require.NotNil(t, remote.EndsAt)
	assert.True(t, remote.EndsAt.After(clk.Now()))
}

func TestCancelAtPeriodEndKeepsExistingPeriodEnd(t *testing.T) {
	client, db, clk := newTestClient(t)
	endsAt := clk.Now().Add(10 * 24 * time.Hour)
	seedSubscription(t, db, billingdomain.SubscriptionStatusActive, &endsAt)

	remote, err := client.CancelAtPeriodEnd(context.Background(), "sub_test_1")
	require.NoError(t, err)
	require.NotNil(t, remote.EndsAt)
	assert.True(t, remote.EndsAt.Equal(endsAt))
}

func TestCancelUnknownRef(t *testing.T) {
	client, _, _ := newTestClient(t)

	_, err := client.CancelAtPeriodEnd(context.Background(), "sub_missing")
	assert.ErrorIs(t, err, billingdomain.ErrSubscriptionNotFound)
}

func TestResumeClearsPeriodEnd(t *testing.T) {
	client, db, clk := newTestClient(t)
	endsAt := clk.Now().Add(5 * 24 * time.Hour)
	seedSubscription(t, db, billingdomain.SubscriptionStatusCanceled, &endsAt)

	remote, err := client.Resume(context.Background(), "sub_test_1")
	require.NoError(t, err)

	assert.Equal(t, string(billingdomain.SubscriptionStatusActive), remote.Status)
	assert.Nil(t, remote.EndsAt)
}
