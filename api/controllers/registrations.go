package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/hackbot/api/middleware"
	"github.com/angelmondragon/hackbot/api/responses"
	"github.com/angelmondragon/hackbot/api/validators"
	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

type registrationDTO struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	TeamName        string    `json:"team_name"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	ReviewedBy      *string   `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toRegistrationDTO(r *models.RegistrationRequest) registrationDTO {
	return registrationDTO{
		ID:              r.ID,
		UserID:          r.UserID,
		FullName:        r.FullName,
		TeamName:        r.TeamName,
		Status:          r.Status.String(),
		RejectionReason: r.RejectionReason,
		ReviewedBy:      r.ReviewedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type registrationStatsResponse struct {
	Total    int64             `json:"total"`
	Pending  int64             `json:"pending"`
	Approved int64             `json:"approved"`
	Rejected int64             `json:"rejected"`
	Recent   []registrationDTO `json:"recent"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

// RegistrationStats returns counts per status and the most recent submissions.
func RegistrationStats(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := registrationStatsResponse{
			Total:    stats.Total,
			Pending:  stats.Pending,
			Approved: stats.Approved,
			Rejected: stats.Rejected,
			Recent:   make([]registrationDTO, 0, len(stats.Recent)),
		}
		for i := range stats.Recent {
			resp.Recent = append(resp.Recent, toRegistrationDTO(&stats.Recent[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// RegistrationApprove approves the pending request of the user in the path.
func RegistrationApprove(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		userID, moderatorID, ok := moderationTarget(w, r, logg)
		if !ok {
			return
		}

		record, err := svc.Approve(r.Context(), userID, moderatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRegistrationDTO(record))
	}
}

// RegistrationReject rejects the pending request of the user in the path.
func RegistrationReject(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		userID, moderatorID, ok := moderationTarget(w, r, logg)
		if !ok {
			return
		}

		var body rejectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Reject(r.Context(), registrations.RejectInput{
			UserID:      userID,
			ModeratorID: moderatorID,
			Reason:      strings.TrimSpace(body.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRegistrationDTO(record))
	}
}

func moderationTarget(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, string, bool) {
	moderatorID := middleware.StaffIDFromContext(r.Context())
	if moderatorID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "moderator context missing"))
		return "", "", false
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
		return "", "", false
	}
	return userID, moderatorID, true
}
