package models

import "time"

// Team is one roster entry. Rows are created by seeding and removed only by teardown.
type Team struct {
	TeamName  string    `gorm:"column:team_name;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Members []TeamMember `gorm:"foreignKey:TeamName;references:TeamName"`
}

func (Team) TableName() string {
	return "teams"
}

// TeamMember is a (team, user) pair. The pair is the primary key so adds are idempotent.
type TeamMember struct {
	TeamName  string    `gorm:"column:team_name;primaryKey"`
	UserID    string    `gorm:"column:user_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
