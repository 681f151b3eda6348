package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/internal/clock"
	customerdomain "github.com/leadwayhq/leadway/internal/customer/domain"
	"github.com/leadwayhq/leadway/internal/lead/domain"
	"github.com/leadwayhq/leadway/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// transitions lists the statuses each status may move to. Terminal
// statuses have no entries.
var transitions = map[domain.LeadStatus][]domain.LeadStatus{
	domain.LeadStatusNew:       {domain.LeadStatusContacted, domain.LeadStatusQualified, domain.LeadStatusLost},
	domain.LeadStatusContacted: {domain.LeadStatusQualified, domain.LeadStatusLost},
	domain.LeadStatusQualified: {domain.LeadStatusConverted, domain.LeadStatusLost},
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CustomerSvc customerdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	customerSvc customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("lead.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		customerSvc: p.CustomerSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLeadRequest) (domain.Lead, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Lead{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Lead{}, domain.ErrInvalidEmail
	}

	var ownerID *snowflake.ID
	if owner := strings.TrimSpace(req.OwnerID); owner != "" {
		parsed, err := snowflake.ParseString(owner)
		if err != nil || parsed == 0 {
			return domain.Lead{}, domain.ErrInvalidID
		}
		ownerID = &parsed
	}

	now := s.clock.Now()
	lead := domain.Lead{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Source:    strings.TrimSpace(req.Source),
		Status:    domain.LeadStatusNew,
		OwnerID:   ownerID,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &lead); err != nil {
		return domain.Lead{}, err
	}

	return lead, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLeadRequest) (domain.ListLeadResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListLeadResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.ListLeadFilter{
		Status:      req.Status,
		Source:      strings.TrimSpace(req.Source),
		OwnerID:     strings.TrimSpace(req.OwnerID),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListLeadResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(lead *domain.Lead) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        lead.ID.String(),
			CreatedAt: lead.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	leads := make([]domain.Lead, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		leads = append(leads, *item)
	}

	resp := domain.ListLeadResponse{Leads: leads}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Lead{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Lead{}, err
	}
	if item == nil {
		return domain.Lead{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateLeadRequest) (domain.Lead, error) {
	parsed, err := s.parseID(req.ID)
	if err != nil {
		return domain.Lead{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Lead{}, err
	}
	if item == nil {
		return domain.Lead{}, domain.ErrNotFound
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		item.Name = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		if !strings.Contains(email, "@") {
			return domain.Lead{}, domain.ErrInvalidEmail
		}
		item.Email = email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		item.Phone = phone
	}
	if company := strings.TrimSpace(req.Company); company != "" {
		item.Company = company
	}
	if source := strings.TrimSpace(req.Source); source != "" {
		item.Source = source
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		item.Notes = notes
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Lead{}, err
	}

	return *item, nil
}

// Transition moves a lead along the pipeline. Converted and lost are
// terminal; conversion itself goes through Convert so the customer
// record is created alongside.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Lead, error) {
	if !req.Status.Valid() {
		return domain.Lead{}, domain.ErrInvalidStatus
	}
	if req.Status == domain.LeadStatusConverted {
		return s.Convert(ctx, req.ID)
	}

	parsed, err := s.parseID(req.ID)
	if err != nil {
		return domain.Lead{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Lead{}, err
	}
	if item == nil {
		return domain.Lead{}, domain.ErrNotFound
	}

	if !canTransition(item.Status, req.Status) {
		return domain.Lead{}, domain.ErrInvalidTransition
	}

	item.Status = req.Status
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Lead{}, err
	}

	return *item, nil
}

// Convert marks a qualified lead converted and creates the customer
// record from its contact details.
func (s *Service) Convert(ctx context.Context, id string) (domain.Lead, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Lead{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Lead{}, err
	}
	if item == nil {
		return domain.Lead{}, domain.ErrNotFound
	}

	if !canTransition(item.Status, domain.LeadStatusConverted) {
		return domain.Lead{}, domain.ErrInvalidTransition
	}

	customer, err := s.customerSvc.Create(ctx, customerdomain.CreateCustomerRequest{
		Name:    item.Name,
		Email:   item.Email,
		Phone:   item.Phone,
		Company: item.Company,
	})
	if err != nil {
		return domain.Lead{}, err
	}

	item.Status = domain.LeadStatusConverted
	item.CustomerID = &customer.ID
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Lead{}, err
	}

	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, parsed)
}

func canTransition(from, to domain.LeadStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
