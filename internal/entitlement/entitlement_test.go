package entitlement

import (
	"testing"
	"time"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/config"
	"github.com/stretchr/testify/assert"
)

var evalTime = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		subs     []billingdomain.Subscription
		entitled bool
		reason   Reason
	}{
		{
			name:     "no subscriptions",
			subs:     nil,
			entitled: false,
			reason:   ReasonNoSubscription,
		},
		{
			name: "active",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatusActive},
			},
			entitled: true,
			reason:   ReasonActive,
		},
		{
			name: "trialing",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatusTrialing},
			},
			entitled: true,
			reason:   ReasonTrialing,
		},
		{
			name: "canceled inside paid period",
			subs: []billingdomain.Subscription{
				{
					Status: billingdomain.SubscriptionStatusCanceled,
					EndsAt: ptr(evalTime.Add(time.Hour)),
				},
			},
			entitled: true,
			reason:   ReasonGracePeriod,
		},
		{
			name: "canceled ends exactly now",
			subs: []billingdomain.Subscription{
				{
					Status: billingdomain.SubscriptionStatusCanceled,
					EndsAt: ptr(evalTime),
				},
			},
			entitled: false,
			reason:   ReasonExpired,
		},
		{
			name: "canceled ends in the past",
			subs: []billingdomain.Subscription{
				{
					Status: billingdomain.SubscriptionStatusCanceled,
					EndsAt: ptr(evalTime.Add(-time.Hour)),
				},
			},
			entitled: false,
			reason:   ReasonExpired,
		},
		{
			name: "canceled without ends_at",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatusCanceled},
			},
			entitled: false,
			reason:   ReasonExpired,
		},
		{
			name: "past_due denies",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatusPastDue},
			},
			entitled: false,
			reason:   ReasonExpired,
		},
		{
			name: "unknown status fails closed",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatus("paused")},
			},
			entitled: false,
			reason:   ReasonExpired,
		},
		{
			name: "any qualifying subscription grants",
			subs: []billingdomain.Subscription{
				{Status: billingdomain.SubscriptionStatusUnpaid},
				{
					Status: billingdomain.SubscriptionStatusCanceled,
					EndsAt: ptr(evalTime.Add(-time.Hour)),
				},
				{Status: billingdomain.SubscriptionStatusActive},
			},
			entitled: true,
			reason:   ReasonActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Resolve(tt.subs, evalTime)
			assert.Equal(t, tt.entitled, decision.Entitled)
			assert.Equal(t, tt.reason, decision.Reason)
			if tt.entitled {
				assert.NotNil(t, decision.GrantedBy)
			} else {
				assert.Nil(t, decision.GrantedBy)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	subs := []billingdomain.Subscription{
		{
			Status: billingdomain.SubscriptionStatusCanceled,
			EndsAt: ptr(evalTime.Add(time.Minute)),
		},
	}

	first := Resolve(subs, evalTime)
	second := Resolve(subs, evalTime)
	assert.Equal(t, first, second)
}

func TestFeatureLabel(t *testing.T) {
	cfg := config.DefaultFeatureConfig()

	tests := []struct {
		path  string
		label string
	}{
		{"/leads", "Lead Management"},
		{"/leads/42/edit", "Lead Management"},
		{"/campaigns", "Campaign Management"},
		{"/users", "User Management"},
		{"/customers/7", "Customer Management"},
		{"/reports/quarterly", "this feature"},
		{"", "this feature"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.label, FeatureLabel(tt.path, cfg))
		})
	}
}

func TestFeatureLabelFirstMatchWins(t *testing.T) {
	cfg := config.FeatureConfig{
		Labels: []config.FeatureLabel{
			{Match: "campaigns/archive", Label: "Campaign Archive"},
			{Match: "campaigns", Label: "Campaign Management"},
		},
		Fallback: "this feature",
	}

	assert.Equal(t, "Campaign Archive", FeatureLabel("/campaigns/archive", cfg))
	assert.Equal(t, "Campaign Management", FeatureLabel("/campaigns/new", cfg))
}
