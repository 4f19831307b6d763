package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Inspirimental/addonware-web-sub000/internal/client"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/unlockcache"
)

// RequestUnlock asks the server to email an unlock link. Input is checked
// locally first so invalid requests never reach the network.
func (a *App) RequestUnlock(ctx context.Context, resourceID, name, email, org string) error {
	gate := unlockcache.NewGate(a.Cache, resourceID)
	if !gate.Locked() {
		a.printf("%s\n", gate.Message(a.Locale))
		return nil
	}
	name, email = strings.TrimSpace(name), models.NormalizeEmail(email)
	if name == "" {
		return errors.New(a.t("identity.name_required"))
	}
	if !models.ValidEmail(email) {
		return errors.New(a.t("identity.invalid_email"))
	}
	title := ""
	if cs, err := a.API.CaseStudy(ctx, resourceID); err == nil {
		title = cs.Title
	}
	err := a.API.RequestUnlock(ctx, client.UnlockRequest{
		Email:         email,
		Name:          name,
		Organization:  strings.TrimSpace(org),
		ResourceID:    resourceID,
		ResourceTitle: title,
	})
	if err != nil {
		return err
	}
	gate.RequestSent()
	a.printf("%s\n", gate.Message(a.Locale))
	return nil
}

// VerifyUnlock presents the token from the email link and caches the unlock.
func (a *App) VerifyUnlock(ctx context.Context, resourceID, token string) error {
	gate := unlockcache.NewGate(a.Cache, resourceID)
	v, err := a.API.Verify(ctx, token, resourceID)
	if err != nil {
		return err
	}
	if v.State != models.GateUnlocked {
		gate.Rejected(v.State)
		a.printf("%s\n", gate.Message(a.Locale))
		return nil
	}
	rec := models.UnlockRecord{Token: token}
	if v.Record != nil {
		rec = *v.Record
	}
	if err := gate.Verified(rec); err != nil {
		return fmt.Errorf("remember unlock: %w", err)
	}
	a.printf("%s\n\n%s\n", gate.Message(a.Locale), v.Solution)
	return nil
}

// Status shows the gate; for a cached unlock it fetches the solution again.
func (a *App) Status(ctx context.Context, resourceID string) error {
	gate := unlockcache.NewGate(a.Cache, resourceID)
	if gate.Locked() {
		a.printf("%s\n", gate.Message(a.Locale))
		return nil
	}
	token, _ := a.Cache.Token(resourceID)
	v, err := a.API.Reveal(ctx, token, resourceID)
	if err != nil {
		return err
	}
	if v.State != models.GateUnlocked {
		// server no longer honors the token (e.g. purged); show the gate again
		if err := a.Cache.Forget(resourceID); err != nil {
			return err
		}
		a.printf("%s\n", unlockcache.NewGate(a.Cache, resourceID).Message(a.Locale))
		return nil
	}
	a.printf("%s\n\n%s\n", gate.Message(a.Locale), v.Solution)
	return nil
}
