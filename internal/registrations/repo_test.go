package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hackbot/internal/repo/repotest"
	"github.com/angelmondragon/hackbot/pkg/db/models"
	"github.com/angelmondragon/hackbot/pkg/enums"
)

func createRequest(t *testing.T, r Repository, userID, team string, status enums.RegistrationStatus, at time.Time) *models.RegistrationRequest {
	t.Helper()
	record := &models.RegistrationRequest{
		UserID:    userID,
		FullName:  "Ada Lovelace",
		TeamName:  team,
		Status:    status,
		CreatedAt: at,
	}
	if status == enums.RegistrationStatusRejected {
		reason := "rejected during review"
		record.RejectionReason = &reason
	}
	require.NoError(t, r.Create(context.Background(), record))
	return record
}

func TestLatestByStatusOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, base)
	newest := createRequest(t, r, "u1", "Team Alpha", enums.RegistrationStatusPending, base.Add(time.Minute))
	createRequest(t, r, "u1", "Byte Me", enums.RegistrationStatusRejected, base.Add(2*time.Minute))
	createRequest(t, r, "u2", "Phoenix", enums.RegistrationStatusPending, base.Add(3*time.Minute))

	got, err := r.LatestByStatus(ctx, "u1", enums.RegistrationStatusPending)
	require.NoError(t, err)
	require.Equal(t, newest.ID, got.ID)

	got, err = r.LatestByStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Byte Me", got.TeamName)

	_, err = r.LatestByStatus(ctx, "u1", enums.RegistrationStatusApproved)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransitionFromPendingIsConditional(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	record := createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, time.Now())

	won, err := r.TransitionFromPending(ctx, record.ID, enums.RegistrationStatusApproved, nil, "mod")
	require.NoError(t, err)
	require.True(t, won)

	reason := "second moderator was late"
	won, err = r.TransitionFromPending(ctx, record.ID, enums.RegistrationStatusRejected, &reason, "mod-2")
	require.NoError(t, err)
	require.False(t, won)

	got, err := r.LatestByStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, enums.RegistrationStatusApproved, got.Status)
	require.Nil(t, got.RejectionReason)
	require.Equal(t, "mod", *got.ReviewedBy)
}

func TestSupersedeOthersKeepsTarget(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	now := time.Now()
	old := createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, now)
	keep := createRequest(t, r, "u1", "Team Alpha", enums.RegistrationStatusApproved, now.Add(time.Second))
	other := createRequest(t, r, "u2", "Phoenix", enums.RegistrationStatusPending, now)

	n, err := r.SupersedeOthers(ctx, "u1", keep.ID, SupersededReason)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := r.LatestByStatus(ctx, "u1", enums.RegistrationStatusRejected)
	require.NoError(t, err)
	require.Equal(t, old.ID, got.ID)
	require.Equal(t, SupersededReason, *got.RejectionReason)

	got, err = r.LatestByStatus(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, other.ID, got.ID)
	require.Equal(t, enums.RegistrationStatusPending, got.Status)
}

func TestDeletesAndCounts(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	now := time.Now()
	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusRejected, now)
	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusRejected, now.Add(time.Second))
	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, now.Add(2*time.Second))
	createRequest(t, r, "u2", "Phoenix", enums.RegistrationStatusApproved, now)

	counts, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[enums.RegistrationStatus]int64{
		enums.RegistrationStatusPending:  1,
		enums.RegistrationStatusApproved: 1,
		enums.RegistrationStatusRejected: 2,
	}, counts)

	n, err := r.DeleteByUserAndStatus(ctx, "u1", enums.RegistrationStatusRejected)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	recent, err := r.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "u1", recent[0].UserID)

	n, err = r.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, r.DeleteAll(ctx))
	counts, err = r.CountByStatus(ctx)
	require.NoError(t, err)
	require.Zero(t, counts[enums.RegistrationStatusApproved])
}

func TestSetModLogRef(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	record := createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, time.Now())

	require.NoError(t, r.SetModLogRef(ctx, record.ID, "chan-1/msg-1"))

	got, err := r.LatestByStatus(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.ModLogMessageRef)
	require.Equal(t, "chan-1/msg-1", *got.ModLogMessageRef)
}

func TestStoreRejectsShortFullName(t *testing.T) {
	r := NewRepository(repotest.OpenSQLite(t))

	err := r.Create(context.Background(), &models.RegistrationRequest{
		UserID:   "u1",
		FullName: "Al",
		TeamName: "Phoenix",
		Status:   enums.RegistrationStatusPending,
	})
	require.Error(t, err)
}

func TestTransitionFromPendingRefusesIllegalTarget(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	record := createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, time.Now())

	won, err := r.TransitionFromPending(ctx, record.ID, enums.RegistrationStatusPending, nil, "mod")
	require.Error(t, err)
	require.False(t, won)
}

func TestSupersedeOthersLeavesEveryOtherRecordRejected(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.OpenSQLite(t))
	now := time.Now()
	rejected := createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusRejected, now)
	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusPending, now.Add(time.Second))
	createRequest(t, r, "u1", "Phoenix", enums.RegistrationStatusApproved, now.Add(2*time.Second))
	keep := createRequest(t, r, "u1", "Team Alpha", enums.RegistrationStatusPending, now.Add(3*time.Second))

	n, err := r.SupersedeOthers(ctx, "u1", keep.ID, SupersededReason)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	var rows []models.RegistrationRequest
	require.NoError(t, rawDB(r).Where("user_id = ? AND id <> ?", "u1", keep.ID).Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, enums.RegistrationStatusRejected, row.Status)
		if row.ID == rejected.ID {
			require.Equal(t, "rejected during review", *row.RejectionReason)
		} else {
			require.Equal(t, SupersededReason, *row.RejectionReason)
		}
	}
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	r := NewRepository(repotest.OpenSQLite(t))

	err := r.Create(context.Background(), &models.RegistrationRequest{
		UserID:   "u1",
		FullName: "Ada Lovelace",
		TeamName: "Phoenix",
		Status:   enums.RegistrationStatus("banned"),
	})
	require.Error(t, err)
}

func rawDB(r Repository) *gorm.DB {
	return r.(*repository).DB(context.Background())
}
