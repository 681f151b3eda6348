package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leadwayhq/leadway/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyLogin   = "auth:login:%s"
	keyWebhook = "billing:webhook:%s"

	loginRate    = 0.2 // one attempt every five seconds sustained
	loginBurst   = 5
	webhookRate  = 20.0
	webhookBurst = 100
)

// Limiter guards the login and webhook endpoints. When no redis address
// is configured it is disabled and every request passes.
type Limiter struct {
	enabled bool
	bucket  *TokenBucket
}

func NewLimiter(cfg config.Config) *Limiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &Limiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &Limiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowLogin limits login attempts per client IP.
func (l *Limiter) AllowLogin(ctx context.Context, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLogin, strings.TrimSpace(clientIP)), loginRate, loginBurst)
}

// AllowWebhook limits webhook deliveries per provider.
func (l *Limiter) AllowWebhook(ctx context.Context, provider string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhook, strings.TrimSpace(provider)), webhookRate, webhookBurst)
}

// RetryAfterSeconds renders a Retry-After header value, never below 1.
func RetryAfterSeconds(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
