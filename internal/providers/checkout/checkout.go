// Package checkout is the outbound billing-provider client. It keeps the
// provider interaction local: hosted-page URLs are synthesized from
// configuration and cancel/resume act on the mirrored subscription row,
// so the rest of the application talks to a ProviderClient without any
// network dependency.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/config"
)

var (
	ErrUnknownPlan       = errors.New("unknown_plan")
	ErrPortalUnavailable = errors.New("portal_unavailable")
)

// defaultGracePeriod stands in for the provider's current-period end,
// which the local mirror does not track per row.
const defaultGracePeriod = 30 * 24 * time.Hour

var defaultPlans = []billingdomain.Plan{
	{
		PriceRef:    "price_starter_monthly",
		ProductRef:  "prod_starter",
		Name:        "Starter",
		Description: "Up to 3 seats, leads and customers.",
		AmountCents: 1900,
		Currency:    "usd",
		Interval:    "month",
	},
	{
		PriceRef:    "price_growth_monthly",
		ProductRef:  "prod_growth",
		Name:        "Growth",
		Description: "Unlimited seats, campaigns and reporting.",
		AmountCents: 4900,
		Currency:    "usd",
		Interval:    "month",
	},
	{
		PriceRef:    "price_growth_yearly",
		ProductRef:  "prod_growth",
		Name:        "Growth (annual)",
		Description: "Growth billed yearly, two months free.",
		AmountCents: 49000,
		Currency:    "usd",
		Interval:    "year",
	},
}

type Client struct {
	db  *gorm.DB
	log *zap.Logger

	cfg   config.Config
	genID *snowflake.Node
	clock clock.Clock
	repo  billingdomain.Repository
	plans []billingdomain.Plan
}

func NewClient(cfg config.Config, log *zap.Logger, db *gorm.DB, genID *snowflake.Node, clk clock.Clock, repo billingdomain.Repository) *Client {
	return &Client{
		db:  db,
		log: log.Named("providers.checkout"),

		cfg:   cfg,
		genID: genID,
		clock: clk,
		repo:  repo,
		plans: defaultPlans,
	}
}

// ListPlans implements billingdomain.ProviderClient.
func (c *Client) ListPlans(ctx context.Context) ([]billingdomain.Plan, error) {
	plans := make([]billingdomain.Plan, len(c.plans))
	copy(plans, c.plans)
	return plans, nil
}

// CreateCheckoutSession implements billingdomain.ProviderClient.
func (c *Client) CreateCheckoutSession(ctx context.Context, req billingdomain.CheckoutSessionRequest) (*billingdomain.RedirectSession, error) {
	priceRef := strings.TrimSpace(req.PriceRef)
	if !c.knownPlan(priceRef) {
		return nil, ErrUnknownPlan
	}

	sessionID := fmt.Sprintf("cs_%s", c.genID.Generate())
	query := url.Values{}
	query.Set("session_id", sessionID)
	query.Set("price", priceRef)
	if req.AccountID != "" {
		query.Set("client_reference_id", req.AccountID)
	}
	if req.Email != "" {
		query.Set("prefilled_email", req.Email)
	}
	if req.SuccessURL != "" {
		query.Set("success_url", req.SuccessURL)
	}
	if req.CancelURL != "" {
		query.Set("cancel_url", req.CancelURL)
	}

	c.log.Info("checkout session created",
		zap.String("session_id", sessionID),
		zap.String("price_ref", priceRef),
		zap.String("account_id", req.AccountID),
	)

	return &billingdomain.RedirectSession{
		URL: fmt.Sprintf("%s/checkout/%s?%s", c.baseURL(), sessionID, query.Encode()),
	}, nil
}

// CreatePortalSession implements billingdomain.ProviderClient.
func (c *Client) CreatePortalSession(ctx context.Context, req billingdomain.PortalSessionRequest) (*billingdomain.RedirectSession, error) {
	base := strings.TrimSpace(c.cfg.BillingPortalBaseURL)
	if base == "" {
		return nil, ErrPortalUnavailable
	}

	query := url.Values{}
	if req.AccountID != "" {
		query.Set("customer", req.AccountID)
	}
	if req.ReturnURL != "" {
		query.Set("return_url", req.ReturnURL)
	}

	target := strings.TrimRight(base, "/")
	if encoded := query.Encode(); encoded != "" {
		target = target + "?" + encoded
	}

	return &billingdomain.RedirectSession{URL: target}, nil
}

// CancelAtPeriodEnd implements billingdomain.ProviderClient. The
// subscription keeps its access until the period end, so the returned
// state is canceled with a future ends_at.
func (c *Client) CancelAtPeriodEnd(ctx context.Context, providerRef string) (*billingdomain.ProviderSubscription, error) {
	sub, err := c.findByRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}

	endsAt := c.clock.Now().Add(defaultGracePeriod)
	if sub.EndsAt != nil && sub.EndsAt.After(c.clock.Now()) {
		endsAt = *sub.EndsAt
	}

	remote := c.toRemote(sub)
	remote.Status = string(billingdomain.SubscriptionStatusCanceled)
	remote.EndsAt = &endsAt
	return remote, nil
}

// Resume implements billingdomain.ProviderClient.
func (c *Client) Resume(ctx context.Context, providerRef string) (*billingdomain.ProviderSubscription, error) {
	sub, err := c.findByRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}

	remote := c.toRemote(sub)
	remote.Status = string(billingdomain.SubscriptionStatusActive)
	remote.EndsAt = nil
	return remote, nil
}

func (c *Client) findByRef(ctx context.Context, providerRef string) (*billingdomain.Subscription, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, billingdomain.ErrSubscriptionNotFound
	}

	sub, err := c.repo.FindByProviderRef(ctx, c.db, c.cfg.BillingProvider, ref)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, billingdomain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (c *Client) toRemote(sub *billingdomain.Subscription) *billingdomain.ProviderSubscription {
	return &billingdomain.ProviderSubscription{
		ProviderRef: sub.ProviderRef,
		AccountID:   sub.AccountID.String(),
		Status:      string(sub.Status),
		PriceRef:    sub.PriceRef,
		Quantity:    sub.Quantity,
		TrialEndsAt: sub.TrialEndsAt,
		EndsAt:      sub.EndsAt,
	}
}

func (c *Client) knownPlan(priceRef string) bool {
	for _, plan := range c.plans {
		if plan.PriceRef == priceRef {
			return true
		}
	}
	return false
}

func (c *Client) baseURL() string {
	if base := strings.TrimSpace(c.cfg.BillingPortalBaseURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return fmt.Sprintf("https://billing.%s.local", c.cfg.BillingProvider)
}
