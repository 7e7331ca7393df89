package models

import "time"

// Throttled actions.
const (
	ActionLogin  = "login"
	ActionSignup = "signup"
)

// FailedAttempt is one recorded authentication failure. The log is
// append-only; rows older than the rate-limit window are ignored by reads
// and eventually purged by the janitor.
type FailedAttempt struct {
	ID        string    `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RateLimitDecision is the outcome of a throttle check.
type RateLimitDecision struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	WaitTime  time.Duration `json:"-"`
}

// WaitMinutes reports the wait rounded up to whole minutes for UX messaging.
func (d RateLimitDecision) WaitMinutes() int {
	if d.WaitTime <= 0 {
		return 0
	}
	mins := int((d.WaitTime + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
