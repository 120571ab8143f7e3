package registrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/hackbot/internal/roster"
	"github.com/angelmondragon/hackbot/internal/teams"
	"github.com/angelmondragon/hackbot/pkg/db"
	"github.com/angelmondragon/hackbot/pkg/db/models"
	"github.com/angelmondragon/hackbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
	"github.com/angelmondragon/hackbot/pkg/pubsub"
	"github.com/angelmondragon/hackbot/pkg/ratelimit"
)

const (
	opSubmit     = "submit"
	opApprove    = "approve"
	opReject     = "reject"
	opUnregister = "unregister"

	effectModLogPost     = "modlog_post"
	effectModLogFinalize = "modlog_finalize"
	effectNotifyUser     = "notify_user"
	effectGrantAccess    = "grant_access"
	effectRevokeAccess   = "revoke_access"
	effectPublishEvent   = "publish_event"

	defaultSideEffectTimeout = 30 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Result, error)
	ClearAll(ctx context.Context) error
}

type resolver interface {
	Resolve(input string) roster.Resolution
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType enums.RegistrationEventType, event pubsub.RegistrationEvent) error
}

type outcomeRecorder interface {
	IncOutcome(op, outcome string)
	IncSideEffectFailure(effect string)
}

// Notifier delivers direct messages and maintains moderator notifications.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, message string) error
	// PostModeration posts a notice with approve and reject actions and returns
	// a reference that FinalizeModeration accepts.
	PostModeration(ctx context.Context, notice ModerationNotice) (string, error)
	// FinalizeModeration replaces the notice behind ref with text and drops its actions.
	FinalizeModeration(ctx context.Context, ref, text string) error
}

// AccessGranter gives and takes away team access on the chat platform.
type AccessGranter interface {
	Grant(ctx context.Context, userID, teamName string) error
	Revoke(ctx context.Context, userID, teamName string) error
}

// VoiceChannelLocator finds the voice channel of a team, if one exists.
type VoiceChannelLocator interface {
	VoiceChannelID(ctx context.Context, teamName string) (string, error)
}

// Service drives a user's registration from submission to approval, rejection or removal.
type Service interface {
	PreCheck(ctx context.Context, userID string) error
	Submit(ctx context.Context, input SubmitInput) (*models.RegistrationRequest, error)
	Approve(ctx context.Context, userID, moderatorID string) (*models.RegistrationRequest, error)
	Reject(ctx context.Context, input RejectInput) (*models.RegistrationRequest, error)
	Unregister(ctx context.Context, userID string) (string, error)
	Stats(ctx context.Context) (*Stats, error)
	Teardown(ctx context.Context) error
}

// Deps lists the collaborators of the registration service. Voice, Events and
// Metrics are optional.
type Deps struct {
	Tx       txRunner
	Repo     Repository
	Teams    teams.Repository
	Limiter  limiter
	Resolver resolver
	Notifier Notifier
	Access   AccessGranter
	Voice    VoiceChannelLocator
	Events   eventPublisher
	Metrics  outcomeRecorder
	Logger   *logger.Logger
	// SideEffectTimeout bounds the best-effort work that follows a commit.
	SideEffectTimeout time.Duration
}

type service struct {
	tx                txRunner
	repo              Repository
	teams             teams.Repository
	limiter           limiter
	resolver          resolver
	notifier          Notifier
	access            AccessGranter
	voice             VoiceChannelLocator
	events            eventPublisher
	metrics           outcomeRecorder
	logg              *logger.Logger
	sideEffectTimeout time.Duration
}

// NewService builds the registration lifecycle service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("registration repository required")
	}
	if deps.Teams == nil {
		return nil, fmt.Errorf("team repository required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("team resolver required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access granter required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.SideEffectTimeout <= 0 {
		deps.SideEffectTimeout = defaultSideEffectTimeout
	}
	return &service{
		tx:                deps.Tx,
		repo:              deps.Repo,
		teams:             deps.Teams,
		limiter:           deps.Limiter,
		resolver:          deps.Resolver,
		notifier:          deps.Notifier,
		access:            deps.Access,
		voice:             deps.Voice,
		events:            deps.Events,
		metrics:           deps.Metrics,
		logg:              deps.Logger,
		sideEffectTimeout: deps.SideEffectTimeout,
	}, nil
}

// PreCheck reports ALREADY_PENDING or ALREADY_APPROVED before a form is shown.
// It does not touch the cooldown.
func (s *service) PreCheck(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "User id is required.")
	}
	return s.ensureNoActive(ctx, userID)
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.RegistrationRequest, error) {
	input = input.normalized()
	ctx = s.logg.WithUserID(ctx, input.UserID)
	if err := validate.Struct(input); err != nil {
		return nil, s.finish(ctx, opSubmit, validationError(err))
	}

	if err := s.ensureNoActive(ctx, input.UserID); err != nil {
		return nil, s.finish(ctx, opSubmit, err)
	}

	if !input.IsAdmin {
		res, err := s.limiter.Check(ctx, input.UserID)
		if err != nil {
			return nil, s.finish(ctx, opSubmit, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "check cooldown"))
		}
		if !res.Allowed {
			secs := remainingSeconds(res.Remaining)
			throttled := pkgerrors.New(pkgerrors.CodeThrottled, msgThrottled(secs)).
				WithDetails(ThrottleDetails{RemainingSeconds: secs})
			return nil, s.finish(ctx, opSubmit, throttled)
		}
	}

	match := s.resolver.Resolve(input.TeamInput)
	switch match.Kind {
	case roster.KindExact:
	case roster.KindSuggestion:
		suggestion := pkgerrors.New(pkgerrors.CodeAmbiguousMatch, msgSuggestion(match.Team, input.TeamInput)).
			WithDetails(Suggestion{Input: input.TeamInput, Team: match.Team, Score: match.Score})
		return nil, s.finish(ctx, opSubmit, suggestion)
	default:
		return nil, s.finish(ctx, opSubmit, pkgerrors.New(pkgerrors.CodeNoTeamMatch, msgNoTeamMatch(input.TeamInput)))
	}

	record := &models.RegistrationRequest{
		UserID:   input.UserID,
		FullName: input.FullName,
		TeamName: match.Team,
		Status:   enums.RegistrationStatusPending,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.DeleteByUserAndStatus(ctx, input.UserID, enums.RegistrationStatusRejected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "delete rejected requests")
		}
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create registration request")
		}
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, opSubmit, storeError(err, "submit registration"))
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"registration_id": record.ID.String(),
		"team":            record.TeamName,
	})
	s.logg.Info(ctx, "registration request submitted")
	s.metricsOutcome(opSubmit, "ok")

	effects, cancel := s.sideEffectContext(ctx)
	defer cancel()

	s.attempt(effects, effectModLogPost, pkgerrors.CodeNotificationFailed, func(ctx context.Context) error {
		ref, err := s.notifier.PostModeration(ctx, ModerationNotice{
			RegistrationID: record.ID,
			UserID:         record.UserID,
			FullName:       record.FullName,
			TeamName:       record.TeamName,
		})
		if err != nil {
			return err
		}
		if ref == "" {
			return nil
		}
		if err := s.repo.SetModLogRef(ctx, record.ID, ref); err != nil {
			return fmt.Errorf("store mod-log reference: %w", err)
		}
		record.ModLogMessageRef = &ref
		return nil
	})
	s.publish(effects, enums.RegistrationEventSubmitted, record, "", "")

	return record, nil
}

func (s *service) Approve(ctx context.Context, userID, moderatorID string) (*models.RegistrationRequest, error) {
	userID = strings.TrimSpace(userID)
	moderatorID = strings.TrimSpace(moderatorID)
	ctx = s.logg.WithModeratorID(s.logg.WithUserID(ctx, userID), moderatorID)
	if userID == "" || moderatorID == "" {
		return nil, s.finish(ctx, opApprove, pkgerrors.New(pkgerrors.CodeValidation, "User id and moderator id are required."))
	}

	var record *models.RegistrationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		latest, err := s.latestPending(ctx, repo, userID)
		if err != nil {
			return err
		}
		won, err := repo.TransitionFromPending(ctx, latest.ID, enums.RegistrationStatusApproved, nil, moderatorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "approve registration request")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeNoPendingRequest, msgNoPending)
		}
		superseded, err := repo.SupersedeOthers(ctx, userID, latest.ID, SupersededReason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "supersede older requests")
		}
		if superseded > 0 {
			s.logg.Info(s.logg.WithField(ctx, "superseded", superseded), "older registration requests superseded")
		}
		if _, err := s.teams.WithTx(tx).AddMember(ctx, latest.TeamName, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "add team member")
		}
		latest.Status = enums.RegistrationStatusApproved
		latest.RejectionReason = nil
		latest.ReviewedBy = &moderatorID
		record = latest
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, opApprove, storeError(err, "approve registration"))
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"registration_id": record.ID.String(),
		"team":            record.TeamName,
	})
	s.logg.Info(ctx, "registration approved")
	s.metricsOutcome(opApprove, "ok")

	effects, cancel := s.sideEffectContext(ctx)
	defer cancel()

	s.attempt(effects, effectGrantAccess, pkgerrors.CodeAccessGrantFailed, func(ctx context.Context) error {
		return s.access.Grant(ctx, record.UserID, record.TeamName)
	})
	s.attempt(effects, effectNotifyUser, pkgerrors.CodeNotificationFailed, func(ctx context.Context) error {
		return s.notifier.NotifyUser(ctx, record.UserID, approvalDM(record.TeamName, s.voiceChannel(ctx, record.TeamName)))
	})
	s.finalizeModLog(effects, record, ApprovedLogText(record.UserID, record.FullName, record.TeamName, moderatorID))
	s.publish(effects, enums.RegistrationEventApproved, record, moderatorID, "")

	return record, nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.RegistrationRequest, error) {
	input = input.normalized()
	ctx = s.logg.WithModeratorID(s.logg.WithUserID(ctx, input.UserID), input.ModeratorID)
	if err := validate.Struct(input); err != nil {
		return nil, s.finish(ctx, opReject, validationError(err))
	}

	var record *models.RegistrationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		latest, err := s.latestPending(ctx, repo, input.UserID)
		if err != nil {
			return err
		}
		reason := input.Reason
		won, err := repo.TransitionFromPending(ctx, latest.ID, enums.RegistrationStatusRejected, &reason, input.ModeratorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "reject registration request")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeNoPendingRequest, msgNoPending)
		}
		latest.Status = enums.RegistrationStatusRejected
		latest.RejectionReason = &reason
		latest.ReviewedBy = &input.ModeratorID
		record = latest
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, opReject, storeError(err, "reject registration"))
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"registration_id": record.ID.String(),
		"team":            record.TeamName,
	})
	s.logg.Info(ctx, "registration rejected")
	s.metricsOutcome(opReject, "ok")

	effects, cancel := s.sideEffectContext(ctx)
	defer cancel()

	s.attempt(effects, effectNotifyUser, pkgerrors.CodeNotificationFailed, func(ctx context.Context) error {
		return s.notifier.NotifyUser(ctx, record.UserID, rejectionDM(record.TeamName, input.Reason))
	})
	s.finalizeModLog(effects, record, rejectedLogText(record.UserID, record.FullName, record.TeamName, input.ModeratorID, input.Reason))
	s.publish(effects, enums.RegistrationEventRejected, record, input.ModeratorID, input.Reason)

	return record, nil
}

// Unregister removes an approved user from their team and forgets every request
// they made. It returns the team the user left.
func (s *service) Unregister(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	ctx = s.logg.WithUserID(ctx, userID)
	if userID == "" {
		return "", s.finish(ctx, opUnregister, pkgerrors.New(pkgerrors.CodeValidation, "User id is required."))
	}

	var record *models.RegistrationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		approved, err := repo.LatestByStatus(ctx, userID, enums.RegistrationStatusApproved)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotRegistered, msgNotRegistered)
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "lookup approved request")
		}
		if err := s.teams.WithTx(tx).RemoveMember(ctx, approved.TeamName, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "remove team member")
		}
		if _, err := repo.DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "delete registration requests")
		}
		record = approved
		return nil
	})
	if err != nil {
		return "", s.finish(ctx, opUnregister, storeError(err, "unregister"))
	}

	ctx = s.logg.WithTeam(ctx, record.TeamName)
	s.logg.Info(ctx, "user unregistered")
	s.metricsOutcome(opUnregister, "ok")

	effects, cancel := s.sideEffectContext(ctx)
	defer cancel()

	s.attempt(effects, effectRevokeAccess, pkgerrors.CodeAccessGrantFailed, func(ctx context.Context) error {
		return s.access.Revoke(ctx, userID, record.TeamName)
	})
	s.publish(effects, enums.RegistrationEventUnregistered, record, "", "")

	return record.TeamName, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "count registrations")
	}
	recent, err := s.repo.Recent(ctx, recentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list recent registrations")
	}
	stats := &Stats{
		Pending:  counts[enums.RegistrationStatusPending],
		Approved: counts[enums.RegistrationStatusApproved],
		Rejected: counts[enums.RegistrationStatusRejected],
		Recent:   recent,
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// Teardown deletes every registration, member and team and resets the cooldowns.
func (s *service) Teardown(ctx context.Context) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		return s.teams.WithTx(tx).DeleteAll(ctx)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "teardown")
	}
	if err := s.limiter.ClearAll(ctx); err != nil {
		s.logg.WarnErr(ctx, "clear cooldowns failed", err)
	}
	s.logg.Warn(ctx, "registration data torn down")
	return nil
}

func (s *service) ensureNoActive(ctx context.Context, userID string) error {
	active, err := s.repo.LatestByStatus(ctx, userID, enums.ActiveRegistrationStatuses()...)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "lookup active request")
	}
	switch active.Status {
	case enums.RegistrationStatusPending:
		return pkgerrors.New(pkgerrors.CodeAlreadyPending, msgAlreadyPending)
	case enums.RegistrationStatusApproved:
		return pkgerrors.New(pkgerrors.CodeAlreadyApproved, msgAlreadyApproved(active.TeamName))
	default:
		return nil
	}
}

func (s *service) latestPending(ctx context.Context, repo Repository, userID string) (*models.RegistrationRequest, error) {
	latest, err := repo.LatestByStatus(ctx, userID, enums.RegistrationStatusPending)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNoPendingRequest, msgNoPending)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "lookup pending request")
	}
	return latest, nil
}

// finish logs a failed operation at the level its code calls for and counts it.
func (s *service) finish(ctx context.Context, op string, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"op": op, "code": string(code)})
	if pkgerrors.IsExpected(err) {
		s.logg.Info(ctx, "registration outcome")
	} else {
		s.logg.Error(ctx, "registration operation failed", err)
	}
	s.metricsOutcome(op, string(code))
	return err
}

func (s *service) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
}

// attempt runs one best-effort side effect. Failures are logged and counted only.
func (s *service) attempt(ctx context.Context, effect string, code pkgerrors.Code, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		wrapped := pkgerrors.Wrap(code, err, effect)
		fields := pkgerrors.Dump(wrapped).Fields()
		fields["effect"] = effect
		s.logg.WarnErr(s.logg.WithFields(ctx, fields), "side effect failed", wrapped)
		if s.metrics != nil {
			s.metrics.IncSideEffectFailure(effect)
		}
	}
}

func (s *service) finalizeModLog(ctx context.Context, record *models.RegistrationRequest, text string) {
	if record.ModLogMessageRef == nil || *record.ModLogMessageRef == "" {
		s.logg.Warn(ctx, "no mod-log message recorded for registration")
		return
	}
	ref := *record.ModLogMessageRef
	s.attempt(ctx, effectModLogFinalize, pkgerrors.CodeNotificationFailed, func(ctx context.Context) error {
		return s.notifier.FinalizeModeration(ctx, ref, text)
	})
}

func (s *service) voiceChannel(ctx context.Context, teamName string) string {
	if s.voice == nil {
		return ""
	}
	id, err := s.voice.VoiceChannelID(ctx, teamName)
	if err != nil {
		s.logg.WarnErr(ctx, "voice channel lookup failed", err)
		return ""
	}
	return id
}

func (s *service) publish(ctx context.Context, eventType enums.RegistrationEventType, record *models.RegistrationRequest, moderatorID, reason string) {
	if s.events == nil {
		return
	}
	s.attempt(ctx, effectPublishEvent, pkgerrors.CodeDependency, func(ctx context.Context) error {
		return s.events.Publish(ctx, eventType, pubsub.RegistrationEvent{
			RegistrationID: record.ID.String(),
			UserID:         record.UserID,
			TeamName:       record.TeamName,
			Status:         record.Status.String(),
			ModeratorID:    moderatorID,
			Reason:         reason,
		})
	})
}

func (s *service) metricsOutcome(op, outcome string) {
	if s.metrics != nil {
		s.metrics.IncOutcome(op, outcome)
	}
}

// storeError keeps typed errors and marks anything else as a store failure.
func storeError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, msg)
}
