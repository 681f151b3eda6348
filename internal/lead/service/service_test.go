package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/leadwayhq/leadway/internal/clock"
	customerdomain "github.com/leadwayhq/leadway/internal/customer/domain"
	customerrepository "github.com/leadwayhq/leadway/internal/customer/repository"
	customerservice "github.com/leadwayhq/leadway/internal/customer/service"
	"github.com/leadwayhq/leadway/internal/lead/domain"
	"github.com/leadwayhq/leadway/internal/lead/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Lead{}, &customerdomain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC))

	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Repo:  customerrepository.Provide(),
	})

	return &Service{
		db:          db,
		log:         zap.NewNop(),
		genID:       node,
		clock:       fc,
		repo:        repository.Provide(),
		customerSvc: customerSvc,
	}, db
}

func mustCreateLead(t *testing.T, svc *Service) domain.Lead {
	t.Helper()
	lead, err := svc.Create(context.Background(), domain.CreateLeadRequest{
		Name:    "Dana Fields",
		Email:   "dana@example.com",
		Company: "Fields Roofing",
		Source:  "referral",
	})
	require.NoError(t, err)
	return lead
}

func TestCreateLeadStartsNew(t *testing.T) {
	svc, _ := newTestService(t)

	lead := mustCreateLead(t, svc)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)

	_, err := svc.Create(context.Background(), domain.CreateLeadRequest{Name: "", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateLeadRequest{Name: "No Email", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestTransitionFollowsPipeline(t *testing.T) {
	svc, _ := newTestService(t)
	lead := mustCreateLead(t, svc)

	updated, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: domain.LeadStatusContacted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusContacted, updated.Status)

	// Jumping back to new is not allowed.
	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: domain.LeadStatusNew,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: "bogus",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestConvertCreatesCustomer(t *testing.T) {
	svc, db := newTestService(t)
	lead := mustCreateLead(t, svc)

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: domain.LeadStatusQualified,
	})
	require.NoError(t, err)

	converted, err := svc.Convert(context.Background(), lead.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConverted, converted.Status)
	require.NotNil(t, converted.CustomerID)

	var customer customerdomain.Customer
	require.NoError(t, db.Where("id = ?", *converted.CustomerID).Take(&customer).Error)
	assert.Equal(t, "dana@example.com", customer.Email)
	assert.Equal(t, "Fields Roofing", customer.Company)

	// Terminal status, nothing further moves.
	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: domain.LeadStatusLost,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConvertRequiresQualified(t *testing.T) {
	svc, _ := newTestService(t)
	lead := mustCreateLead(t, svc)

	_, err := svc.Convert(context.Background(), lead.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestListLeadsByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	lead := mustCreateLead(t, svc)
	mustCreateLeadNamed(t, svc, "Other Lead", "other@example.com")

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID: lead.ID.String(), Status: domain.LeadStatusContacted,
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), domain.ListLeadRequest{Status: domain.LeadStatusContacted})
	require.NoError(t, err)
	require.Len(t, resp.Leads, 1)
	assert.Equal(t, lead.ID, resp.Leads[0].ID)
}

func mustCreateLeadNamed(t *testing.T, svc *Service, name, email string) domain.Lead {
	t.Helper()
	lead, err := svc.Create(context.Background(), domain.CreateLeadRequest{Name: name, Email: email})
	require.NoError(t, err)
	return lead
}
