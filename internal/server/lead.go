package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	leaddomain "github.com/leadwayhq/leadway/internal/lead/domain"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
)

type leadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Source  string `json:"source"`
	OwnerID string `json:"owner_id"`
	Notes   string `json:"notes"`
}

type leadTransitionRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateLead(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lead, err := s.leadSvc.Create(c.Request.Context(), leaddomain.CreateLeadRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Company: strings.TrimSpace(req.Company),
		Source:  strings.TrimSpace(req.Source),
		OwnerID: strings.TrimSpace(req.OwnerID),
		Notes:   req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "lead.create", "lead", lead.ID.String(), map[string]any{
		"email":  lead.Email,
		"source": lead.Source,
	})
	c.JSON(http.StatusOK, gin.H{"data": lead})
}

func (s *Server) ListLeads(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status      string `form:"status"`
		Source      string `form:"source"`
		OwnerID     string `form:"owner_id"`
		CreatedFrom string `form:"created_from"`
		CreatedTo   string `form:"created_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createdFrom, err := parseOptionalTime(query.CreatedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("created_from", "invalid_created_from", "invalid created_from"))
		return
	}

	createdTo, err := parseOptionalTime(query.CreatedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
		return
	}

	resp, err := s.leadSvc.List(c.Request.Context(), leaddomain.ListLeadRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		Status:      leaddomain.LeadStatus(strings.TrimSpace(query.Status)),
		Source:      strings.TrimSpace(query.Source),
		OwnerID:     strings.TrimSpace(query.OwnerID),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLeadByID(c *gin.Context) {
	lead, err := s.leadSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lead})
}

func (s *Server) UpdateLead(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lead, err := s.leadSvc.Update(c.Request.Context(), leaddomain.UpdateLeadRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Company: strings.TrimSpace(req.Company),
		Source:  strings.TrimSpace(req.Source),
		Notes:   req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "lead.update", "lead", lead.ID.String(), nil)
	c.JSON(http.StatusOK, gin.H{"data": lead})
}

func (s *Server) TransitionLead(c *gin.Context) {
	var req leadTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lead, err := s.leadSvc.Transition(c.Request.Context(), leaddomain.TransitionRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: leaddomain.LeadStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "lead.transition", "lead", lead.ID.String(), map[string]any{
		"status": string(lead.Status),
	})
	c.JSON(http.StatusOK, gin.H{"data": lead})
}

func (s *Server) ConvertLead(c *gin.Context) {
	lead, err := s.leadSvc.Convert(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	metadata := map[string]any{}
	if lead.CustomerID != nil {
		metadata["customer_id"] = lead.CustomerID.String()
	}
	s.auditMutation(c, "lead.convert", "lead", lead.ID.String(), metadata)
	c.JSON(http.StatusOK, gin.H{"data": lead})
}

func (s *Server) DeleteLead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.leadSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "lead.delete", "lead", id, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
