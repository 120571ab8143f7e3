package registrations

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/hackbot/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
)

const (
	FullNameMinLength = 3
	FullNameMaxLength = 50
	ReasonMinLength   = 10
	ReasonMaxLength   = 1000

	// SupersededReason is stored on requests displaced by a newer approval.
	SupersededReason = "Superseded by newer registration"

	recentLimit = 5
)

var validate = validator.New()

// SubmitInput is one registration form submission.
type SubmitInput struct {
	UserID    string `validate:"required"`
	FullName  string `validate:"required,min=3,max=50"`
	TeamInput string `validate:"required,max=100"`
	// IsAdmin bypasses the submission cooldown.
	IsAdmin bool
}

func (in SubmitInput) normalized() SubmitInput {
	in.UserID = strings.TrimSpace(in.UserID)
	in.FullName = strings.Join(strings.Fields(in.FullName), " ")
	in.TeamInput = strings.TrimSpace(in.TeamInput)
	return in
}

// RejectInput is a moderator's rejection decision.
type RejectInput struct {
	UserID      string `validate:"required"`
	ModeratorID string `validate:"required"`
	Reason      string `validate:"required,min=10,max=1000"`
}

func (in RejectInput) normalized() RejectInput {
	in.UserID = strings.TrimSpace(in.UserID)
	in.ModeratorID = strings.TrimSpace(in.ModeratorID)
	in.Reason = strings.TrimSpace(in.Reason)
	return in
}

// Suggestion is the closest roster entry offered when the input was not exact.
type Suggestion struct {
	Input string  `json:"input"`
	Team  string  `json:"team"`
	Score float64 `json:"score"`
}

// ThrottleDetails accompanies a THROTTLED error.
type ThrottleDetails struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

// ModerationNotice is what moderators see for a new pending request.
type ModerationNotice struct {
	RegistrationID uuid.UUID
	UserID         string
	FullName       string
	TeamName       string
}

// Stats summarises the registration table.
type Stats struct {
	Total    int64                        `json:"total"`
	Pending  int64                        `json:"pending"`
	Approved int64                        `json:"approved"`
	Rejected int64                        `json:"rejected"`
	Recent   []models.RegistrationRequest `json:"-"`
}

// SuggestionFrom extracts the suggested team from an AMBIGUOUS_MATCH error.
func SuggestionFrom(err error) (Suggestion, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAmbiguousMatch {
		return Suggestion{}, false
	}
	s, ok := typed.Details().(Suggestion)
	return s, ok
}

func validationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	var first string
	for _, fe := range errs {
		msg := fieldMessage(fe)
		details[fe.Field()] = msg
		if first == "" {
			first = msg
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, first).WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	label := map[string]string{
		"UserID":      "User id",
		"ModeratorID": "Moderator id",
		"FullName":    "Full name",
		"TeamInput":   "Team name",
		"Reason":      "Rejection reason",
	}[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", label)
}

func remainingSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
