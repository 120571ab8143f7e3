package registrations

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hackbot/internal/repo/repotest"
	"github.com/angelmondragon/hackbot/internal/roster"
	"github.com/angelmondragon/hackbot/internal/teams"
	"github.com/angelmondragon/hackbot/pkg/db"
	"github.com/angelmondragon/hackbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/ratelimit"
)

type storeFixture struct {
	svc      Service
	regs     Repository
	teams    teams.Repository
	notifier *stubNotifier
	access   *stubAccess
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	conn := repotest.OpenSQLite(t)
	resolver, err := roster.New([]string{"Phoenix", "Team Alpha", "Code Crusaders"}, roster.DefaultThreshold)
	require.NoError(t, err)

	f := &storeFixture{
		regs:     NewRepository(conn),
		teams:    teams.NewRepository(conn),
		notifier: &stubNotifier{},
		access:   &stubAccess{},
	}
	_, err = f.teams.EnsureTeams(context.Background(), resolver.Teams())
	require.NoError(t, err)

	f.svc, err = NewService(Deps{
		Tx:       db.NewFromGorm(conn),
		Repo:     f.regs,
		Teams:    f.teams,
		Limiter:  ratelimit.NewMemoryLimiter(0),
		Resolver: resolver,
		Notifier: f.notifier,
		Access:   f.access,
		Voice:    stubVoice{"Phoenix": "vc-1"},
	})
	require.NoError(t, err)
	return f
}

func TestEndToEndPhoenixRegistration(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	record, err := f.svc.Submit(ctx, SubmitInput{UserID: "u-100", FullName: "Ada Lovelace", TeamInput: "Phoenix"})
	require.NoError(t, err)
	require.Equal(t, enums.RegistrationStatusPending, record.Status)

	stored, err := f.regs.LatestByStatus(ctx, "u-100", enums.RegistrationStatusPending)
	require.NoError(t, err)
	require.Equal(t, record.ID, stored.ID)
	require.NotNil(t, stored.ModLogMessageRef)
	require.Equal(t, "mod-log:u-100", *stored.ModLogMessageRef)

	approved, err := f.svc.Approve(ctx, "u-100", "mod-1")
	require.NoError(t, err)
	require.Equal(t, enums.RegistrationStatusApproved, approved.Status)

	stored, err = f.regs.LatestByStatus(ctx, "u-100")
	require.NoError(t, err)
	require.Equal(t, enums.RegistrationStatusApproved, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	require.Equal(t, "mod-1", *stored.ReviewedBy)

	members, err := f.teams.Members(ctx, "Phoenix")
	require.NoError(t, err)
	require.Equal(t, []string{"u-100"}, members)

	require.Len(t, f.notifier.dms, 1)
	require.Equal(t, "u-100", f.notifier.dms[0].userID)
	require.True(t, strings.Contains(f.notifier.dms[0].message, "Phoenix"))
	require.Contains(t, f.notifier.finalized["mod-log:u-100"], "APPROVED")
}

func TestConcurrentApprovalsAddMemberOnce(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	_, err := f.svc.Submit(ctx, SubmitInput{UserID: "u-200", FullName: "Grace Hopper", TeamInput: "Phoenix"})
	require.NoError(t, err)

	const approvers = 2
	var wg sync.WaitGroup
	errs := make([]error, approvers)
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, "u-200", "mod")
		}(i)
	}
	wg.Wait()

	var ok, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case pkgerrors.HasCode(err, pkgerrors.CodeNoPendingRequest):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, lost)

	members, err := f.teams.Members(ctx, "Phoenix")
	require.NoError(t, err)
	require.Equal(t, []string{"u-200"}, members)
	require.Len(t, f.access.calls, 1)
}

func TestApproveSupersedesOlderPendingRequests(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	older, err := f.svc.Submit(ctx, SubmitInput{UserID: "u-300", FullName: "Alan Turing", TeamInput: "Team Alpha"})
	require.NoError(t, err)
	// a second pending row can only appear through a race; write it directly
	newer := *older
	newer.ID = uuid.Nil
	newer.TeamName = "Phoenix"
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	newer.ModLogMessageRef = nil
	require.NoError(t, f.regs.Create(ctx, &newer))

	approved, err := f.svc.Approve(ctx, "u-300", "mod")
	require.NoError(t, err)
	require.Equal(t, newer.ID, approved.ID)
	require.Equal(t, "Phoenix", approved.TeamName)

	stale, err := f.regs.LatestByStatus(ctx, "u-300", enums.RegistrationStatusRejected)
	require.NoError(t, err)
	require.Equal(t, older.ID, stale.ID)
	require.NotNil(t, stale.RejectionReason)
	require.Equal(t, SupersededReason, *stale.RejectionReason)
}

func TestRejectThenResubmitOnStore(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	first, err := f.svc.Submit(ctx, SubmitInput{UserID: "u-400", FullName: "Katherine Johnson", TeamInput: "Code Crusaders"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, SubmitInput{UserID: "u-400", FullName: "Katherine Johnson", TeamInput: "Code Crusaders"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyPending))

	rejected, err := f.svc.Reject(ctx, RejectInput{UserID: "u-400", ModeratorID: "mod", Reason: "Team has no open seats"})
	require.NoError(t, err)
	require.Equal(t, first.ID, rejected.ID)

	second, err := f.svc.Submit(ctx, SubmitInput{UserID: "u-400", FullName: "Katherine Johnson", TeamInput: "Phoenix"})
	require.NoError(t, err)

	_, err = f.regs.LatestByStatus(ctx, "u-400", enums.RegistrationStatusRejected)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	latest, err := f.regs.LatestByStatus(ctx, "u-400")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
}

func TestUnregisterLeavesNoRecords(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	_, err := f.svc.Unregister(ctx, "u-500")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotRegistered))

	_, err = f.svc.Submit(ctx, SubmitInput{UserID: "u-500", FullName: "Hedy Lamarr", TeamInput: "Phoenix"})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, "u-500", "mod")
	require.NoError(t, err)

	team, err := f.svc.Unregister(ctx, "u-500")
	require.NoError(t, err)
	require.Equal(t, "Phoenix", team)

	_, err = f.regs.LatestByStatus(ctx, "u-500")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	members, err := f.teams.Members(ctx, "Phoenix")
	require.NoError(t, err)
	require.Empty(t, members)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Total)
}
