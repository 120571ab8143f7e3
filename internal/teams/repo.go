package teams

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/hackbot/internal/repo"
	"github.com/angelmondragon/hackbot/pkg/db/models"
)

// Summary is a team with its current member count.
type Summary struct {
	TeamName    string `gorm:"column:team_name"`
	MemberCount int64  `gorm:"column:member_count"`
}

// Repository persists teams and their member sets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureTeams(ctx context.Context, names []string) (int64, error)
	AddMember(ctx context.Context, teamName, userID string) (bool, error)
	RemoveMember(ctx context.Context, teamName, userID string) error
	ListWithCounts(ctx context.Context) ([]Summary, error)
	Members(ctx context.Context, teamName string) ([]string, error)
	DeleteAll(ctx context.Context) error
}

type repository struct {
	repo.Base
}

// NewRepository constructs a team repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

// EnsureTeams inserts the missing teams and reports how many rows were created.
func (r *repository) EnsureTeams(ctx context.Context, names []string) (int64, error) {
	rows := make([]models.Team, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		rows = append(rows, models.Team{TeamName: name})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

// AddMember adds userID to the team, creating the team row when missing.
// It reports false when the user already was a member.
func (r *repository) AddMember(ctx context.Context, teamName, userID string) (bool, error) {
	if _, err := r.EnsureTeams(ctx, []string{teamName}); err != nil {
		return false, err
	}
	res := r.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TeamMember{TeamName: teamName, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RemoveMember drops userID from the team. Removing a non-member is a no-op.
func (r *repository) RemoveMember(ctx context.Context, teamName, userID string) error {
	return r.DB(ctx).
		Where("team_name = ? AND user_id = ?", teamName, userID).
		Delete(&models.TeamMember{}).Error
}

// ListWithCounts returns every team with its member count, ordered by name.
func (r *repository) ListWithCounts(ctx context.Context) ([]Summary, error) {
	var rows []Summary
	err := r.DB(ctx).
		Table("teams AS t").
		Select("t.team_name AS team_name, COUNT(m.user_id) AS member_count").
		Joins("LEFT JOIN team_members AS m ON m.team_name = t.team_name").
		Group("t.team_name").
		Order("t.team_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Members lists the user ids of one team in join order.
func (r *repository) Members(ctx context.Context, teamName string) ([]string, error) {
	var ids []string
	err := r.DB(ctx).
		Model(&models.TeamMember{}).
		Where("team_name = ?", teamName).
		Order("created_at ASC").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteAll removes every member and team row.
func (r *repository) DeleteAll(ctx context.Context) error {
	db := r.DB(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&models.TeamMember{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Team{}).Error
}
