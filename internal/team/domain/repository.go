package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound = errors.New("team_not_found")
	ErrTeamExists   = errors.New("team_exists")
	ErrInvalidTeam  = errors.New("invalid_team")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, team *Team) error
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (Team, error)
	GetByToken(ctx context.Context, db *gorm.DB, token string) (Team, error)

	// UpdatePlan is the single mutation point for subscription state. It
	// unconditionally overwrites the two plan fields; call order decides
	// the winner when two reconciliation sources race.
	UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, plan PlanName, paidUntil time.Time) error
}
