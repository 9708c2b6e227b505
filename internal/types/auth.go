package types

import "github.com/golang-jwt/jwt/v5"

// Claims are the custom claims carried by access tokens. The registered
// Subject claim duplicates UserID so standard tooling can read it.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"usr,omitempty"`
	Email    string `json:"eml"`
	Role     string `json:"rol"`
	jwt.RegisteredClaims
}
