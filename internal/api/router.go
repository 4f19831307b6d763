package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/notify"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

const maxBodyBytes = 1 << 20

// Deps wires the router. Store is required; everything else has a default.
type Deps struct {
	Store Store
	// Tokens overrides where unlock tokens live (e.g. Redis); Store otherwise.
	Tokens   services.TokenStore
	Gateway  services.NotificationGateway
	Auth     *middleware.Auth
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	PublicBaseURL      string
	TokenTTL           time.Duration
	DefaultNotifyEmail string
	AllowedOrigins     []string
	Commit             string
	BuildTime          string

	// Frontend, when set, serves every path the API does not claim.
	Frontend http.Handler
}

type Router struct {
	store    Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	auth     *middleware.Auth

	tokens         *services.TokenService
	unlock         *services.UnlockService
	responses      *services.ResponseService
	questionnaires *services.QuestionnaireService
	caseStudies    *services.CaseStudyService
	admins         *services.AuthService
	exports        *services.ExportService

	origins   []string
	commit    string
	buildTime string
	frontend  http.Handler
}

func NewRouter(d Deps) *Router {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	if d.Auth == nil {
		d.Auth = middleware.NewAuth("")
	}
	if d.Tokens == nil {
		d.Tokens = d.Store
	}
	if d.Gateway == nil {
		d.Gateway = notify.NewMailGateway(notify.NewLogMailer(d.Log), notify.DefaultTimeout, d.Log, d.Metrics)
	}
	tokens := services.NewTokenService(d.Tokens, d.TokenTTL)
	return &Router{
		store:          d.Store,
		log:            d.Log,
		metrics:        d.Metrics,
		gatherer:       d.Gatherer,
		auth:           d.Auth,
		tokens:         tokens,
		unlock:         services.NewUnlockService(tokens, d.Store, d.Gateway, d.PublicBaseURL).Instrument(d.Log, d.Metrics),
		responses:      services.NewResponseService(d.Store, d.Gateway, d.DefaultNotifyEmail).Instrument(d.Log, d.Metrics),
		questionnaires: services.NewQuestionnaireService(d.Store),
		caseStudies:    services.NewCaseStudyService(d.Store),
		admins:         services.NewAuthService(d.Store, d.Auth.SignToken),
		exports:        services.NewExportService(d.Store),
		origins:        d.AllowedOrigins,
		commit:         d.Commit,
		buildTime:      d.BuildTime,
		frontend:       d.Frontend,
	}
}

// Tokens exposes the token service for the expiry janitor.
func (rt *Router) Tokens() *services.TokenService { return rt.tokens }

// Admins exposes the admin service for bootstrapping the operator account.
func (rt *Router) Admins() *services.AuthService { return rt.admins }

// Handler builds the complete HTTP handler including health and metrics.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(rt.log))
	r.Use(middleware.Instrument(rt.metrics))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(rt.origins...))
	r.Use(middleware.LocaleMiddleware)

	r.Get("/health", rt.handleHealth)
	r.Get("/version", rt.handleVersion)
	if rt.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api", rt.Register)
	if rt.frontend != nil {
		r.Handle("/*", rt.frontend)
	}
	return r
}

// Register mounts the JSON API below r.
func (rt *Router) Register(r chi.Router) {
	r.Use(middleware.NoStore)
	r.Use(middleware.MaxBody(maxBodyBytes))

	r.Post("/unlock/request", rt.handleUnlockRequest)
	r.Post("/unlock/verify", rt.handleUnlockVerify)
	r.Get("/case-studies", rt.handleListCaseStudies)
	r.Get("/case-studies/{id}", rt.handleCaseStudy)
	r.Post("/case-studies/{id}/reveal", rt.handleReveal)
	r.Get("/questionnaires/{slug}", rt.handleQuestionnaire)
	r.Post("/questionnaires/{slug}/responses", rt.handleSubmitResponse)

	r.Post("/admin/login", rt.handleLogin)
	r.Group(func(admin chi.Router) {
		admin.Use(rt.auth.WithAuth)
		admin.Use(middleware.RequireAuth)
		admin.Get("/admin/questionnaires", rt.handleAdminListQuestionnaires)
		admin.Post("/admin/questionnaires", rt.handleAdminCreateQuestionnaire)
		admin.Get("/admin/questionnaires/{id}", rt.handleAdminGetQuestionnaire)
		admin.Patch("/admin/questionnaires/{id}/active", rt.handleAdminSetActive)
		admin.Get("/admin/questionnaires/{id}/responses", rt.handleAdminResponses)
		admin.Get("/admin/questionnaires/{id}/export", rt.handleAdminExport)
		admin.Delete("/admin/responses/{id}", rt.handleAdminDeleteResponse)
		admin.Get("/admin/case-studies", rt.handleAdminListCaseStudies)
		admin.Post("/admin/case-studies", rt.handleAdminUpsertCaseStudy)
		admin.Get("/admin/audit", rt.handleAdminAudit)
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status, ok := http.StatusOK, true
	if err := rt.store.Ping(ctx); err != nil {
		rt.log.WithError(err).Warn("health check: store unreachable")
		status, ok = http.StatusServiceUnavailable, false
	}
	writeJSON(w, status, map[string]any{
		"ok":         ok,
		"name":       "addonware API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.commit,
		"build_time": rt.buildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commit":     rt.commit,
		"build_time": rt.buildTime,
	})
}
