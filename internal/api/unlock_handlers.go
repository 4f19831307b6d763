package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

type unlockRequestBody struct {
	Email         string `json:"email" validate:"max=254"`
	Name          string `json:"name" validate:"max=200"`
	Organization  string `json:"organization" validate:"max=200"`
	ResourceID    string `json:"resourceId" validate:"required,max=128"`
	ResourceTitle string `json:"resourceTitle" validate:"max=300"`
}

type verifyBody struct {
	Token      string `json:"token" validate:"max=128"`
	ResourceID string `json:"resourceId" validate:"required,max=128"`
}

type revealBody struct {
	Token string `json:"token" validate:"max=128"`
}

type cacheRecord struct {
	ResourceID string    `json:"resourceId"`
	Token      string    `json:"token"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

type unlockedBody struct {
	State      models.GateState `json:"state"`
	ResourceID string           `json:"resourceId"`
	Solution   string           `json:"solution"`
	Cache      *cacheRecord     `json:"cache,omitempty"`
}

type publicCaseStudy struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Gate    string `json:"gate"`
}

// POST /api/unlock/request
func (rt *Router) handleUnlockRequest(w http.ResponseWriter, r *http.Request) {
	var body unlockRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	err := rt.unlock.RequestUnlock(r.Context(), services.UnlockRequest{
		ResourceID:    body.ResourceID,
		ResourceTitle: body.ResourceTitle,
		Name:          body.Name,
		Email:         body.Email,
		Organization:  body.Organization,
		Locale:        middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct{}{})
}

// verifyStatus is the HTTP status of a failed verification.
func verifyStatus(out services.VerifyOutcome) int {
	switch out {
	case services.OutcomeAlreadyConsumed:
		return http.StatusConflict
	case services.OutcomeExpired:
		return http.StatusGone
	case services.OutcomeResourceMismatch:
		return http.StatusForbidden
	}
	return http.StatusNotFound
}

func (rt *Router) writeGateRejection(w http.ResponseWriter, r *http.Request, status int, state models.GateState) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, status, errorBody{Error: utils.T(locale, "gate."+string(state)), State: string(state)})
}

// POST /api/unlock/verify
func (rt *Router) handleUnlockVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	res, err := rt.unlock.HandleVerification(r.Context(), body.Token, body.ResourceID)
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	if res.Outcome != services.OutcomeUnlocked {
		rt.writeGateRejection(w, r, verifyStatus(res.Outcome), res.State)
		return
	}
	out := unlockedBody{State: res.State, ResourceID: res.ResourceID, Solution: res.Solution}
	if res.Cache != nil {
		out.Cache = &cacheRecord{ResourceID: res.ResourceID, Token: res.Cache.Token, UnlockedAt: res.Cache.UnlockedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/case-studies/{id}/reveal
func (rt *Router) handleReveal(w http.ResponseWriter, r *http.Request) {
	var body revealBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	res, err := rt.unlock.Reveal(r.Context(), body.Token, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	if res.State != models.GateUnlocked {
		status := verifyStatus(res.Outcome)
		if res.Outcome == services.OutcomeUnlocked {
			// issued but never verified: reveal is not a second way to consume
			status = http.StatusForbidden
		}
		rt.writeGateRejection(w, r, status, res.State)
		return
	}
	writeJSON(w, http.StatusOK, unlockedBody{State: res.State, ResourceID: res.ResourceID, Solution: res.Solution})
}

func toPublicCaseStudy(cs *models.CaseStudy, locale string) publicCaseStudy {
	return publicCaseStudy{ID: cs.ID, Title: cs.Title, Summary: cs.Summary, Gate: utils.T(locale, "gate.not_requested")}
}

// GET /api/case-studies
func (rt *Router) handleListCaseStudies(w http.ResponseWriter, r *http.Request) {
	list, err := rt.caseStudies.ListPublished(r.Context())
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	out := make([]publicCaseStudy, 0, len(list))
	for _, cs := range list {
		out = append(out, toPublicCaseStudy(cs, locale))
	}
	writeJSON(w, http.StatusOK, map[string]any{"caseStudies": out})
}

// GET /api/case-studies/{id}
func (rt *Router) handleCaseStudy(w http.ResponseWriter, r *http.Request) {
	cs, err := rt.caseStudies.Public(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicCaseStudy(cs, middleware.LocaleFromContext(r.Context())))
}
