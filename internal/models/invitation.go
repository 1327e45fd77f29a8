package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RegistrationInvitation is a single-use, time-limited capability token
// permitting self-registration. The used=false → used=true transition is
// one-way and applied exactly once at successful registration.
type RegistrationInvitation struct {
	ID        surrealmodels.RecordID `json:"id"`
	Email     string                 `json:"email"`
	ExpiresAt time.Time              `json:"expires_at"`
	Used      bool                   `json:"used"`
	CreatedBy string                 `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
}

// ValidAt reports whether the invitation can still be redeemed at now.
// A used invitation never validates, regardless of expiry.
func (i RegistrationInvitation) ValidAt(now time.Time) bool {
	return !i.Used && i.ExpiresAt.After(now)
}
