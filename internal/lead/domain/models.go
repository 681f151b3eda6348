package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Valid reports whether the status is one the pipeline knows.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Terminal statuses cannot transition anywhere else.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusConverted || s == LeadStatusLost
}

type Lead struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"not null" json:"name"`
	Email      string            `gorm:"not null" json:"email"`
	Phone      string            `gorm:"type:text" json:"phone,omitempty"`
	Company    string            `gorm:"type:text" json:"company,omitempty"`
	Source     string            `gorm:"type:text" json:"source,omitempty"`
	Status     LeadStatus        `gorm:"type:text;not null;default:'new';index" json:"status"`
	OwnerID    *snowflake.ID     `gorm:"index" json:"owner_id,omitempty"`
	CustomerID *snowflake.ID     `gorm:"index" json:"customer_id,omitempty"`
	Notes      string            `gorm:"type:text" json:"notes,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }
