package api

import (
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JwtSecretKey signs the access tokens accepted by the plans API. Loaded
// from the environment at startup; the fallback only exists for local dev.
var JwtSecretKey = func() []byte {
	if s := os.Getenv("JWT_SECRET_KEY"); s != "" {
		return []byte(s)
	}
	return []byte("dev-secret-key")
}()

// Claims are the custom claims carried in the access token.
type Claims struct {
	UserID               string `json:"uid"`
	Email                string `json:"eml,omitempty"`
	Role                 string `json:"rol,omitempty"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, Subject, ...
}

// Response is the generic API envelope for success or error messages.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DefaultFollowUps is the safe fallback suggestion set returned whenever the
// pipeline fails and nothing more specific can be offered.
var DefaultFollowUps = []string{"Plan a trip"}

// FailureResponse is what the boundary returns for any internal failure:
// a generic message plus follow-up suggestions, never the underlying cause.
type FailureResponse struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	RequestID         string   `json:"request_id,omitempty"`
}
