package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() teamdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, team *teamdomain.Team) error {
	return db.WithContext(ctx).Create(team).Error
}

func (r *repo) GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teamdomain.Team{}, teamdomain.ErrTeamNotFound
	}
	if err != nil {
		return teamdomain.Team{}, err
	}
	return team, nil
}

func (r *repo) GetByToken(ctx context.Context, db *gorm.DB, token string) (teamdomain.Team, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return teamdomain.Team{}, teamdomain.ErrTeamNotFound
	}

	hash := teamdomain.HashAPIToken(token)

	var team teamdomain.Team
	err := db.WithContext(ctx).First(&team, "api_token_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return teamdomain.Team{}, teamdomain.ErrTeamNotFound
	}
	if err != nil {
		return teamdomain.Team{}, err
	}
	if subtle.ConstantTimeCompare([]byte(team.APITokenHash), []byte(hash)) != 1 {
		return teamdomain.Team{}, teamdomain.ErrTeamNotFound
	}
	return team, nil
}

// UpdatePlan issues one unconditional partial update of the plan fields.
// There is deliberately no compare-and-swap token on the row.
func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, plan teamdomain.PlanName, paidUntil time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE teams SET plan_name = ?, paid_until = ?, updated_at = ? WHERE id = ?`,
		plan,
		paidUntil,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return teamdomain.ErrTeamNotFound
	}
	return nil
}
