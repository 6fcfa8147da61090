// Package domain contains the core types shared by the watchlist engine.
package domain

// Identity is the authenticated user as reported by the auth service.
// The UID is opaque and only meaningful once the auth service resolves it.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Same reports whether both identities refer to the same user.
// Two nil identities are considered the same.
func (i *Identity) Same(other *Identity) bool {
	if i == nil || other == nil {
		return i == nil && other == nil
	}
	return i.UID == other.UID
}

// Clone returns a copy of the identity, or nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Readiness is the overall application readiness state.
type Readiness string

// Readiness states.
//
//	PENDING -> SIGNED_OUT
//	PENDING -> LOADING_PROFILE -> READY
//	SIGNED_OUT -> LOADING_PROFILE
//	READY -> SIGNED_OUT
const (
	ReadinessPending        Readiness = "pending"
	ReadinessSignedOut      Readiness = "signed_out"
	ReadinessLoadingProfile Readiness = "loading_profile"
	ReadinessReady          Readiness = "ready"
)
