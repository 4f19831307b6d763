package unlockcache

import (
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

// Gate tracks the locked-content UI of one resource.
type Gate struct {
	cache      *Cache
	resourceID string
	state      models.GateState
}

// NewGate starts unlocked when the cache remembers resourceID.
func NewGate(cache *Cache, resourceID string) *Gate {
	g := &Gate{cache: cache, resourceID: resourceID, state: models.GateNotRequested}
	if cache != nil && cache.IsUnlocked(resourceID) {
		g.state = models.GateUnlocked
	}
	return g
}

func (g *Gate) State() models.GateState { return g.state }

// Locked reports whether the gate UI should still cover the content.
func (g *Gate) Locked() bool { return g.state != models.GateUnlocked }

// RequestSent moves to "check your email" after the server accepted the request.
func (g *Gate) RequestSent() {
	if g.state != models.GateUnlocked {
		g.state = models.GateRequested
	}
}

// Verified records a successful verification in the cache.
func (g *Gate) Verified(rec models.UnlockRecord) error {
	g.state = models.GateUnlocked
	if g.cache == nil {
		return nil
	}
	return g.cache.Put(g.resourceID, rec)
}

// Rejected applies a failed verification. A previously cached unlock is kept:
// the cache only mirrors what the server released earlier.
func (g *Gate) Rejected(state models.GateState) {
	if state == models.GateAlreadyUsed {
		g.state = models.GateAlreadyUsed
		return
	}
	g.state = models.GateInvalid
}

// Message returns the localized text for the current state.
func (g *Gate) Message(locale string) string {
	return utils.T(locale, "gate."+string(g.state))
}
