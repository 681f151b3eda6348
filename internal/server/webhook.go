package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	"github.com/leadwayhq/leadway/internal/ratelimit"
)

const signatureHeader = "Leadway-Signature"

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object webhookSubscription `json:"object"`
	} `json:"data"`
}

type webhookSubscription struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Quantity int               `json:"quantity"`
	TrialEnd *int64            `json:"trial_end"`
	EndedAt  *int64            `json:"ended_at"`
	CancelAt *int64            `json:"cancel_at"`
	Metadata map[string]string `json:"metadata"`
	Items    struct {
		Data []webhookItem `json:"data"`
	} `json:"items"`
}

type webhookItem struct {
	ID    string `json:"id"`
	Price struct {
		ID      string `json:"id"`
		Product string `json:"product"`
	} `json:"price"`
	Quantity int `json:"quantity"`
}

// HandleBillingWebhook ingests provider subscription events into the
// local mirror. Deliveries are unauthenticated, so the endpoint is rate
// limited per provider and verifies the payload signature when a
// webhook secret is configured.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if provider == "" || provider != s.cfg.BillingProvider {
		AbortWithError(c, ErrNotFound)
		return
	}

	if s.limiter.Enabled() {
		result, err := s.limiter.AllowWebhook(c.Request.Context(), provider)
		if err == nil && !result.Allowed {
			c.Header("Retry-After", ratelimit.RetryAfterSeconds(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many webhook deliveries"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if secret := s.cfg.BillingWebhookSecret; secret != "" {
		if !verifySignature(body, c.GetHeader(signatureHeader), secret) {
			s.obsMetrics.RecordWebhookEvent("unknown", "bad_signature")
			AbortWithError(c, ErrUnauthorized)
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event := toProviderEvent(provider, payload)
	if err := s.billingSvc.ApplyProviderEvent(c.Request.Context(), event); err != nil {
		s.obsMetrics.RecordWebhookEvent(payload.Type, "error")
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordWebhookEvent(payload.Type, "ok")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func toProviderEvent(provider string, payload webhookPayload) billingdomain.ProviderEvent {
	object := payload.Data.Object

	items := make([]billingdomain.ProviderSubscriptionItem, 0, len(object.Items.Data))
	for _, item := range object.Items.Data {
		items = append(items, billingdomain.ProviderSubscriptionItem{
			ProviderItemRef: item.ID,
			ProductRef:      item.Price.Product,
			PriceRef:        item.Price.ID,
			Quantity:        item.Quantity,
		})
	}

	var priceRef string
	if len(items) > 0 {
		priceRef = items[0].PriceRef
	}

	endsAt := unixTime(object.CancelAt)
	if endsAt == nil {
		endsAt = unixTime(object.EndedAt)
	}

	return billingdomain.ProviderEvent{
		Provider: provider,
		Type:     payload.Type,
		Subscription: billingdomain.ProviderSubscription{
			ProviderRef: object.ID,
			AccountID:   object.Metadata["account_id"],
			Status:      object.Status,
			PriceRef:    priceRef,
			Quantity:    object.Quantity,
			TrialEndsAt: unixTime(object.TrialEnd),
			EndsAt:      endsAt,
			Items:       items,
		},
	}
}

func unixTime(v *int64) *time.Time {
	if v == nil || *v == 0 {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

// verifySignature checks a "t=<unix>,v1=<hex hmac>" header computed over
// "<t>.<payload>" with the shared webhook secret.
func verifySignature(payload []byte, header, secret string) bool {
	timestamp, signatures, ok := parseSignatureHeader(header)
	if !ok {
		return false
	}

	signed := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return true
		}
	}
	return false
}

func parseSignatureHeader(header string) (string, []string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil, false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return "", nil, false
	}
	return timestamp, signatures, true
}
