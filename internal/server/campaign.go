package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	campaigndomain "github.com/leadwayhq/leadway/internal/campaign/domain"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
)

type campaignRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	campaign, err := s.campaignSvc.Create(c.Request.Context(), campaigndomain.CreateCampaignRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "campaign.create", "campaign", campaign.ID.String(), map[string]any{
		"slug": campaign.Slug,
	})
	c.JSON(http.StatusOK, gin.H{"data": campaign})
}

func (s *Server) ListCampaigns(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.campaignSvc.List(c.Request.Context(), campaigndomain.ListCampaignRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    campaigndomain.CampaignStatus(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCampaignBySlug(c *gin.Context) {
	campaign, err := s.campaignSvc.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": campaign})
}

func (s *Server) UpdateCampaign(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	campaign, err := s.campaignSvc.Update(c.Request.Context(), campaigndomain.UpdateCampaignRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      campaigndomain.CampaignStatus(strings.TrimSpace(req.Status)),
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "campaign.update", "campaign", campaign.ID.String(), nil)
	c.JSON(http.StatusOK, gin.H{"data": campaign})
}

func (s *Server) DeleteCampaign(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.campaignSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "campaign.delete", "campaign", id, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
