package teams

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
)

type stubRepo struct {
	ensured   []string
	created   int64
	summaries []Summary
	err       error
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) EnsureTeams(_ context.Context, names []string) (int64, error) {
	s.ensured = names
	return s.created, s.err
}

func (s *stubRepo) AddMember(context.Context, string, string) (bool, error) { return true, s.err }

func (s *stubRepo) RemoveMember(context.Context, string, string) error { return s.err }

func (s *stubRepo) ListWithCounts(context.Context) ([]Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summaries, nil
}

func (s *stubRepo) Members(context.Context, string) ([]string, error) { return nil, s.err }

func (s *stubRepo) DeleteAll(context.Context) error { return s.err }

type staticRoster []string

func (r staticRoster) Teams() []string { return r }

func TestSeedUsesRoster(t *testing.T) {
	repo := &stubRepo{created: 2}
	svc, err := NewService(repo, staticRoster{"Phoenix", "Team Alpha"}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}
	if len(repo.ensured) != 2 || repo.ensured[0] != "Phoenix" {
		t.Fatalf("unexpected names passed to repo: %v", repo.ensured)
	}
}

func TestSeedWrapsStoreErrors(t *testing.T) {
	svc, _ := NewService(&stubRepo{err: errors.New("db down")}, staticRoster{"Phoenix"}, nil)

	_, err := svc.Seed(context.Background())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestSummariesSkipEmptyTeams(t *testing.T) {
	repo := &stubRepo{summaries: []Summary{
		{TeamName: "Code Crusaders", MemberCount: 0},
		{TeamName: "Phoenix", MemberCount: 3},
	}}
	svc, _ := NewService(repo, staticRoster{"Phoenix"}, nil)

	rows, err := svc.Summaries(context.Background())
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(rows) != 1 || rows[0].TeamName != "Phoenix" {
		t.Fatalf("unexpected summaries: %+v", rows)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, staticRoster{"x"}, nil); err == nil {
		t.Fatalf("expected error for missing repo")
	}
	if _, err := NewService(&stubRepo{}, nil, nil); err == nil {
		t.Fatalf("expected error for missing roster")
	}
}
