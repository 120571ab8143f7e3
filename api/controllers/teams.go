package controllers

import (
	"net/http"

	"github.com/angelmondragon/hackbot/api/responses"
	"github.com/angelmondragon/hackbot/internal/teams"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

type teamSummaryDTO struct {
	TeamName    string `json:"team_name"`
	MemberCount int64  `json:"member_count"`
}

type teamListResponse struct {
	Teams      []teamSummaryDTO `json:"teams"`
	RosterSize int              `json:"roster_size"`
}

// TeamList returns the seeded teams with member counts.
func TeamList(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		summaries, err := svc.Summaries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := teamListResponse{
			Teams:      make([]teamSummaryDTO, 0, len(summaries)),
			RosterSize: len(svc.Roster()),
		}
		for _, s := range summaries {
			resp.Teams = append(resp.Teams, teamSummaryDTO{TeamName: s.TeamName, MemberCount: s.MemberCount})
		}
		responses.WriteSuccess(w, resp)
	}
}
