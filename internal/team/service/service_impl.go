package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	"github.com/workfolio/workfolio/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  teamdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  teamdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("team.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Onboard provisions a new team on the free plan and issues its API token.
// The raw token is returned exactly once; only its hash is stored.
func (s *Service) Onboard(ctx context.Context, name, ownerEmail string) (teamdomain.Team, string, error) {
	name = strings.TrimSpace(name)
	ownerEmail = strings.TrimSpace(ownerEmail)
	if name == "" || ownerEmail == "" {
		return teamdomain.Team{}, "", teamdomain.ErrInvalidTeam
	}

	token, err := newAPIToken()
	if err != nil {
		return teamdomain.Team{}, "", err
	}

	id := s.genID.Generate()
	now := time.Now().UTC()
	team := teamdomain.Team{
		ID:           id,
		Slug:         slug.Make(name) + "-" + id.Base36(),
		Name:         name,
		OwnerEmail:   ownerEmail,
		APITokenHash: teamdomain.HashAPIToken(token),
		PlanName:     teamdomain.PlanFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &team); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return teamdomain.Team{}, "", teamdomain.ErrTeamExists
		}
		return teamdomain.Team{}, "", err
	}

	s.log.Info("team onboarded",
		zap.Int64("team_id", int64(team.ID)),
		zap.String("slug", team.Slug),
	)
	return team, token, nil
}

// Authenticate resolves the team owning the given API token.
func (s *Service) Authenticate(ctx context.Context, token string) (teamdomain.Team, error) {
	return s.repo.GetByToken(ctx, s.db, token)
}

// Get returns a team by id.
func (s *Service) Get(ctx context.Context, id snowflake.ID) (teamdomain.Team, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

func newAPIToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "wk_" + hex.EncodeToString(raw), nil
}
