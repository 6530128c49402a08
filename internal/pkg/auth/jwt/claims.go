package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the session-token claims for NeoChat.
// A token is issued inside LoginResponse after a successful login and
// authorizes the HTTP side surface (avatar presign endpoints).
type Payload struct {
	// StandardClaims embeds the JWT standard fields (Exp, Iat, Iss).
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the identity id of the session holder (guest or account id).
	ID string `json:"id"`

	// UserType is "guest" or "member" and gates member-only endpoints.
	UserType string `json:"user_type"`
}
