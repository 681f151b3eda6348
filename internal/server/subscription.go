package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
)

type checkoutRequest struct {
	PriceRef string `json:"price_ref"`
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	views, err := s.billingSvc.ListViewsByAccount(c.Request.Context(), account.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.provider.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.provider.CreateCheckoutSession(c.Request.Context(), billingdomain.CheckoutSessionRequest{
		AccountID:  account.ID.String(),
		Email:      account.Email,
		PriceRef:   strings.TrimSpace(req.PriceRef),
		SuccessURL: s.absoluteURL(c, s.cfg.CheckoutSuccessPath),
		CancelURL:  s.absoluteURL(c, s.cfg.CheckoutCancelPath),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) CreatePortalSession(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	session, err := s.provider.CreatePortalSession(c.Request.Context(), billingdomain.PortalSessionRequest{
		AccountID: account.ID.String(),
		ReturnURL: s.absoluteURL(c, "/subscription"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.billingSvc.Cancel(c.Request.Context(), billingdomain.CancelRequest{
		AccountID:      account.ID,
		SubscriptionID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "subscription.cancel", "subscription", view.ID, nil)
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ResumeSubscription(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.billingSvc.Resume(c.Request.Context(), billingdomain.ResumeRequest{
		AccountID:      account.ID,
		SubscriptionID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "subscription.resume", "subscription", view.ID, nil)
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) absoluteURL(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + path
}
