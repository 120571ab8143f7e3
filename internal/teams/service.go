package teams

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

type rosterSource interface {
	Teams() []string
}

// Service exposes the team listing and roster seeding used by commands and the admin api.
type Service interface {
	Seed(ctx context.Context) (int64, error)
	Summaries(ctx context.Context) ([]Summary, error)
	Roster() []string
}

type service struct {
	repo   Repository
	roster rosterSource
	logg   *logger.Logger
}

// NewService builds a team service over the repository and the configured roster.
func NewService(repo Repository, roster rosterSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("team repository required")
	}
	if roster == nil {
		return nil, fmt.Errorf("roster required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, roster: roster, logg: logg}, nil
}

// Seed inserts one team row per roster entry. Running it twice creates nothing new.
func (s *service) Seed(ctx context.Context) (int64, error) {
	created, err := s.repo.EnsureTeams(ctx, s.roster.Teams())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "seed teams")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"created": created, "roster_size": len(s.roster.Teams())})
	s.logg.Info(ctx, "teams seeded")
	return created, nil
}

// Summaries returns the teams that currently have at least one member.
func (s *service) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.repo.ListWithCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list teams")
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		if row.MemberCount > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

// Roster returns the full configured team list.
func (s *service) Roster() []string {
	return s.roster.Teams()
}
