package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Inspirimental/addonware-web-sub000/internal/api"
	"github.com/Inspirimental/addonware-web-sub000/internal/config"
	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/notify"
)

func main() {
	log := logger.New("addonware-api", os.Getenv("LOG_LEVEL"))
	cfg, envLoaded, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log = logger.New("addonware-api", cfg.LogLevel)
	if envLoaded {
		log.Debug("loaded .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("addonware", reg)

	store, storeCloser, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer storeCloser.Close()

	tokenStore, tokenCloser, err := openTokenStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open token store")
	}
	defer tokenCloser.Close()

	gateway, err := notify.New(cfg.Notify, log, m)
	if err != nil {
		log.WithError(err).Fatal("notification gateway")
	}

	router := api.NewRouter(api.Deps{
		Store:              store,
		Tokens:             tokenStore,
		Gateway:            gateway,
		Auth:               middleware.NewAuth(cfg.JWTSecret),
		Log:                log,
		Metrics:            m,
		Gatherer:           reg,
		PublicBaseURL:      cfg.PublicBaseURL,
		TokenTTL:           cfg.UnlockTokenTTL,
		DefaultNotifyEmail: cfg.Notify.DefaultTo,
		AllowedOrigins:     cfg.AllowedOrigins,
		Commit:             cfg.Commit,
		BuildTime:          cfg.BuildTime,
		Frontend:           frontend(cfg, log),
	})

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := router.Admins().EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.WithError(err).Fatal("ensure admin account")
		}
		if created {
			log.WithField("email", cfg.AdminEmail).Info("admin account created")
		}
	}
	if cfg.SeedDemo {
		if err := seedDemo(ctx, store); err != nil {
			log.WithError(err).Fatal("seed demo data")
		}
		log.Info("demo data seeded")
	}

	go runJanitor(ctx, router.Tokens(), cfg.PurgeInterval, log, m)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("addonware server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown")
		}
	}
}

// frontend serves STATIC_DIR when set, otherwise proxies to DEV_FRONTEND_URL.
func frontend(cfg *config.Config, log *logger.Logger) http.Handler {
	if cfg.StaticDir != "" {
		return http.FileServer(http.Dir(cfg.StaticDir))
	}
	if cfg.DevFrontendURL == "" {
		return nil
	}
	u, err := url.Parse(cfg.DevFrontendURL)
	if err != nil {
		log.WithError(err).WithField("url", cfg.DevFrontendURL).Warn("invalid DEV_FRONTEND_URL")
		return nil
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		return nil
	}
	return rp
}
