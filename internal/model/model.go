// Package model defines the client-side view of the backend data contract.
package model

import "github.com/golang-jwt/jwt/v5"

// SessionTokenType is the only token type accepted as a session.
const SessionTokenType = "session"

// Claims are the decoded payload of a session token.
type Claims struct {
	Email     string           `json:"email,omitempty"`
	Subject   string           `json:"sub,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	Type      string           `json:"type,omitempty"`
}

// User is derived from the current session token and never persisted on its own.
type User struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

// AuthResult is returned by sign-up, sign-in and magic link verification.
type AuthResult struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	SessionToken string `json:"session_token"`
	AuthProvider string `json:"auth_provider,omitempty"`
}

// MagicLinkSent acknowledges a magic link request; no token is issued yet.
type MagicLinkSent struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}
