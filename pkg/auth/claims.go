package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/loadhub-io/loadhub-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are issued by the identity subsystem; this core mints them only in tests
// and local tooling.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	ActorID uuid.UUID
	Role    enums.ActorRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by clients. ActorID is
// the role-specific identity (driver id, dispatcher id or cargo-owner id).
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
