package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hackbot/internal/repo"
	"github.com/angelmondragon/hackbot/pkg/db/models"
	"github.com/angelmondragon/hackbot/pkg/enums"
)

// Repository persists registration requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.RegistrationRequest) error
	LatestByStatus(ctx context.Context, userID string, statuses ...enums.RegistrationStatus) (*models.RegistrationRequest, error)
	TransitionFromPending(ctx context.Context, id uuid.UUID, next enums.RegistrationStatus, reason *string, reviewerID string) (bool, error)
	SupersedeOthers(ctx context.Context, userID string, keep uuid.UUID, reason string) (int64, error)
	SetModLogRef(ctx context.Context, id uuid.UUID, ref string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteByUserAndStatus(ctx context.Context, userID string, status enums.RegistrationStatus) (int64, error)
	CountByStatus(ctx context.Context) (map[enums.RegistrationStatus]int64, error)
	Recent(ctx context.Context, limit int) ([]models.RegistrationRequest, error)
	DeleteAll(ctx context.Context) error
}

type repository struct {
	repo.Base
	now func() time.Time
}

// NewRepository constructs a registration repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db), now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx), now: r.now}
}

// Create inserts a new registration request row.
func (r *repository) Create(ctx context.Context, record *models.RegistrationRequest) error {
	return r.DB(ctx).Create(record).Error
}

// LatestByStatus returns the most recently created request of the user whose
// status is one of statuses. It returns gorm.ErrRecordNotFound when none exists.
func (r *repository) LatestByStatus(ctx context.Context, userID string, statuses ...enums.RegistrationStatus) (*models.RegistrationRequest, error) {
	query := r.DB(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var record models.RegistrationRequest
	err := query.Order("created_at DESC").Limit(1).Take(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// TransitionFromPending moves a pending request to next. It reports false when
// the row was no longer pending, so only one of several racing callers wins.
func (r *repository) TransitionFromPending(ctx context.Context, id uuid.UUID, next enums.RegistrationStatus, reason *string, reviewerID string) (bool, error) {
	if !enums.RegistrationStatusPending.CanTransitionTo(next) {
		return false, fmt.Errorf("registration cannot move from %s to %s", enums.RegistrationStatusPending, next)
	}
	updates := map[string]any{
		"status":           next,
		"rejection_reason": reason,
		"updated_at":       r.now().UTC(),
	}
	if reviewerID != "" {
		updates["reviewed_by"] = reviewerID
	}
	res := r.DB(ctx).
		Model(&models.RegistrationRequest{}).
		Where("id = ? AND status = ?", id, enums.RegistrationStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SupersedeOthers rejects every other request of the user that may still become
// rejected. Rows already rejected keep their own reason.
func (r *repository) SupersedeOthers(ctx context.Context, userID string, keep uuid.UUID, reason string) (int64, error) {
	res := r.DB(ctx).
		Model(&models.RegistrationRequest{}).
		Where("user_id = ? AND id <> ?", userID, keep).
		Where("status IN ?", statusesInto(enums.RegistrationStatusRejected)).
		Updates(map[string]any{
			"status":           enums.RegistrationStatusRejected,
			"rejection_reason": reason,
			"updated_at":       r.now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// SetModLogRef stores where the moderator notification for id was posted.
func (r *repository) SetModLogRef(ctx context.Context, id uuid.UUID, ref string) error {
	return r.DB(ctx).
		Model(&models.RegistrationRequest{}).
		Where("id = ?", id).
		Update("mod_log_message_ref", ref).Error
}

// DeleteByUser removes every request of the user.
func (r *repository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.DB(ctx).Where("user_id = ?", userID).Delete(&models.RegistrationRequest{})
	return res.RowsAffected, res.Error
}

// DeleteByUserAndStatus removes the user's requests in one status.
func (r *repository) DeleteByUserAndStatus(ctx context.Context, userID string, status enums.RegistrationStatus) (int64, error) {
	res := r.DB(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Delete(&models.RegistrationRequest{})
	return res.RowsAffected, res.Error
}

// statusesInto lists every status allowed to move to next.
func statusesInto(next enums.RegistrationStatus) []enums.RegistrationStatus {
	var from []enums.RegistrationStatus
	for _, status := range enums.RegistrationStatuses() {
		if status.CanTransitionTo(next) {
			from = append(from, status)
		}
	}
	return from
}

type statusCount struct {
	Status string `gorm:"column:status"`
	Total  int64  `gorm:"column:total"`
}

// CountByStatus returns the number of requests per status. Every known status is present.
func (r *repository) CountByStatus(ctx context.Context) (map[enums.RegistrationStatus]int64, error) {
	var rows []statusCount
	err := r.DB(ctx).
		Model(&models.RegistrationRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.RegistrationStatus]int64, len(enums.RegistrationStatuses()))
	for _, status := range enums.RegistrationStatuses() {
		counts[status] = 0
	}
	for _, row := range rows {
		status, err := enums.ParseRegistrationStatus(row.Status)
		if err != nil {
			return nil, err
		}
		counts[status] = row.Total
	}
	return counts, nil
}

// Recent returns the newest requests across all users.
func (r *repository) Recent(ctx context.Context, limit int) ([]models.RegistrationRequest, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.RegistrationRequest
	err := r.DB(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteAll removes every registration request.
func (r *repository) DeleteAll(ctx context.Context) error {
	return r.DB(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.RegistrationRequest{}).Error
}
