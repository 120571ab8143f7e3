package auth

import (
	"github.com/angelmondragon/hackbot/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	// StaffID is the chat platform user id of the moderator.
	StaffID string
	Role    enums.StaffRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to moderators of the admin api.
type AccessTokenClaims struct {
	StaffID string          `json:"staff_id"`
	Role    enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
