package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/config"
	"github.com/leadwayhq/leadway/internal/ratelimit"
)

func newWebhookTestServer(billing *fakeBillingService, secret string) *Server {
	return &Server{
		cfg: config.Config{
			BillingProvider:      "stripe",
			BillingWebhookSecret: secret,
		},
		billingSvc: billing,
		limiter:    ratelimit.NewLimiter(config.Config{}),
	}
}

func postWebhook(srv *Server, provider, body string, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/billing/webhook/:provider", srv.HandleBillingWebhook)

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook/"+provider, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func signBody(body, secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp + "." + body))
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleBillingWebhookAppliesEvent(t *testing.T) {
	billing := &fakeBillingService{}
	srv := newWebhookTestServer(billing, "")

	body := `{"id":"evt_1","type":"customer.subscription.created","data":{"object":{"id":"sub_123","status":"active","quantity":2,"metadata":{"account_id":"42"},"items":{"data":[{"id":"si_1","quantity":2,"price":{"id":"price_growth_monthly","product":"prod_growth"}}]}}}}`
	resp := postWebhook(srv, "stripe", body, nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(billing.applied) != 1 {
		t.Fatalf("expected one applied event, got %d", len(billing.applied))
	}

	event := billing.applied[0]
	if event.Provider != "stripe" {
		t.Fatalf("unexpected provider %q", event.Provider)
	}
	if event.Type != billingdomain.EventSubscriptionCreated {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.Subscription.ProviderRef != "sub_123" {
		t.Fatalf("unexpected provider ref %q", event.Subscription.ProviderRef)
	}
	if event.Subscription.AccountID != "42" {
		t.Fatalf("unexpected account id %q", event.Subscription.AccountID)
	}
	if event.Subscription.PriceRef != "price_growth_monthly" {
		t.Fatalf("unexpected price ref %q", event.Subscription.PriceRef)
	}
	if len(event.Subscription.Items) != 1 || event.Subscription.Items[0].ProviderItemRef != "si_1" {
		t.Fatalf("unexpected items %+v", event.Subscription.Items)
	}
}

func TestHandleBillingWebhookUnknownProvider(t *testing.T) {
	srv := newWebhookTestServer(&fakeBillingService{}, "")

	resp := postWebhook(srv, "paypal", `{}`, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestHandleBillingWebhookRejectsBadSignature(t *testing.T) {
	billing := &fakeBillingService{}
	srv := newWebhookTestServer(billing, "whsec_test")

	body := `{"id":"evt_1","type":"customer.subscription.created","data":{"object":{"id":"sub_1","status":"active","metadata":{"account_id":"42"}}}}`

	resp := postWebhook(srv, "stripe", body, map[string]string{
		signatureHeader: "t=1714000000,v1=deadbeef",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if len(billing.applied) != 0 {
		t.Fatal("expected no event applied on bad signature")
	}
}

func TestHandleBillingWebhookAcceptsValidSignature(t *testing.T) {
	billing := &fakeBillingService{}
	srv := newWebhookTestServer(billing, "whsec_test")

	body := `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","status":"canceled","metadata":{"account_id":"42"}}}}`

	resp := postWebhook(srv, "stripe", body, map[string]string{
		signatureHeader: signBody(body, "whsec_test", "1714000000"),
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(billing.applied) != 1 {
		t.Fatalf("expected one applied event, got %d", len(billing.applied))
	}
}

func TestVerifySignatureHeaderParsing(t *testing.T) {
	if verifySignature([]byte("payload"), "", "secret") {
		t.Fatal("empty header must not verify")
	}
	if verifySignature([]byte("payload"), "v1=abc", "secret") {
		t.Fatal("header without timestamp must not verify")
	}
	if !verifySignature([]byte("payload"), signBody("payload", "secret", "1714000000"), "secret") {
		t.Fatal("valid signature must verify")
	}
}
