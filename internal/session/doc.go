// Package session owns the client's authentication state: the persisted
// bearer token, the validator that decides whether it still describes a
// session, and the guard every protected view consults.
//
// Trust boundary: the validator decodes token claims WITHOUT verifying the
// signature. The client cannot hold the signing secret, so decoded claims
// are only a hint for the user interface (show or hide authenticated views).
// Authorization is enforced by the backend on every request carrying the
// bearer header; a forged or stale token is rejected there with 401, which
// the guard turns into local token eviction.
package session
