package domain

import "context"

// Plan is a purchasable plan surfaced on the plan-selection page.
type Plan struct {
	PriceRef    string `json:"price_ref"`
	ProductRef  string `json:"product_ref"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}

type CheckoutSessionRequest struct {
	AccountID  string
	Email      string
	PriceRef   string
	SuccessURL string
	CancelURL  string
}

type PortalSessionRequest struct {
	AccountID string
	ReturnURL string
}

// RedirectSession is a provider-hosted page the user is sent to.
type RedirectSession struct {
	URL string `json:"url"`
}

// ProviderClient is the outbound boundary to the billing provider.
// The snapshot store never calls it during entitlement evaluation; it
// is used only for remediation flows (checkout, portal, cancel/resume).
type ProviderClient interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*RedirectSession, error)
	CreatePortalSession(ctx context.Context, req PortalSessionRequest) (*RedirectSession, error)
	CancelAtPeriodEnd(ctx context.Context, providerRef string) (*ProviderSubscription, error)
	Resume(ctx context.Context, providerRef string) (*ProviderSubscription, error)
}
