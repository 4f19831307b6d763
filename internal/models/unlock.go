package models

import "time"

// GateState is what the locked-content UI shows for one resource. The server
// reports one of these after every verification.
type GateState string

const (
	GateNotRequested GateState = "not_requested"
	GateRequested    GateState = "requested"
	GateInvalid      GateState = "invalid"
	GateAlreadyUsed  GateState = "already_used"
	GateUnlocked     GateState = "unlocked"
)

// ParseGateState maps the state field of a verification response. Unknown
// values are treated as an invalid link, never as success.
func ParseGateState(s string) GateState {
	switch GateState(s) {
	case GateUnlocked, GateAlreadyUsed, GateInvalid, GateRequested, GateNotRequested:
		return GateState(s)
	}
	return GateInvalid
}

// UnlockRecord is what a client remembers after a successful verification.
type UnlockRecord struct {
	Token      string    `json:"token"`
	UnlockedAt time.Time `json:"unlockedAt"`
}
