// Package entitlement decides whether an account's subscription mirror
// grants access to paid features. The resolver is pure; callers load the
// subscription rows and supply the evaluation time.
package entitlement

import (
	"strings"
	"time"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/config"
)

// Reason explains why a decision came out the way it did. It is meant
// for logging and metrics labels, never for end users.
type Reason string

const (
	ReasonActive         Reason = "active"
	ReasonTrialing       Reason = "trialing"
	ReasonGracePeriod    Reason = "grace_period"
	ReasonNoSubscription Reason = "no_subscription"
	ReasonExpired        Reason = "expired"
)

// Decision is the outcome of resolving one account's subscriptions.
type Decision struct {
	Entitled bool
	Reason   Reason

	// GrantedBy is the subscription that satisfied the check, zero when
	// not entitled.
	GrantedBy *billingdomain.Subscription
}

// Resolve evaluates the subscription rows against now. Access is granted
// when any subscription is active, trialing, or canceled with a paid
// period still running (ends_at strictly after now). Every other state,
// including statuses this code has never seen, denies.
//
// A canceled subscription with ends_at exactly equal to now is expired;
// the paid period is over.
func Resolve(subscriptions []billingdomain.Subscription, now time.Time) Decision {
	denial := ReasonNoSubscription

	for i := range subscriptions {
		sub := &subscriptions[i]
		switch sub.Status {
		case billingdomain.SubscriptionStatusActive:
			return Decision{Entitled: true, Reason: ReasonActive, GrantedBy: sub}
		case billingdomain.SubscriptionStatusTrialing:
			return Decision{Entitled: true, Reason: ReasonTrialing, GrantedBy: sub}
		case billingdomain.SubscriptionStatusCanceled:
			if sub.EndsAt != nil && sub.EndsAt.After(now) {
				return Decision{Entitled: true, Reason: ReasonGracePeriod, GrantedBy: sub}
			}
			denial = ReasonExpired
		default:
			// past_due, unpaid, incomplete, and anything unrecognized.
			denial = ReasonExpired
		}
	}

	return Decision{Entitled: false, Reason: denial}
}

// FeatureLabel names the feature behind a request path for denial
// messages. The first configured substring that appears in the path
// wins; unrecognized paths get the configured fallback.
func FeatureLabel(path string, cfg config.FeatureConfig) string {
	for _, entry := range cfg.Labels {
		if strings.Contains(path, entry.Match) {
			return entry.Label
		}
	}
	return cfg.Fallback
}
