// Package domain contains the persistence model for team workspaces.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlanName is the human-readable subscription tier of a team.
type PlanName string

const (
	PlanFree PlanName = "free"
	PlanBase PlanName = "base"
	PlanPlus PlanName = "plus"
)

// Team is a workspace. The plan fields are mutated exclusively by the
// subscription reconciliation engine; everything else belongs to onboarding.
// APITokenHash holds the sha256 of the bearer token; the raw token never
// touches the store.
type Team struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Slug         string            `gorm:"type:text;not null;uniqueIndex"`
	Name         string            `gorm:"type:text;not null"`
	OwnerEmail   string            `gorm:"type:text;not null"`
	APITokenHash string            `gorm:"column:api_token_hash;type:text;not null;uniqueIndex"`
	PlanName     PlanName          `gorm:"type:text;not null;default:free"`
	PaidUntil    *time.Time        `gorm:""`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }
