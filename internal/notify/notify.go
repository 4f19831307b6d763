package notify

import (
	"fmt"

	"github.com/Inspirimental/addonware-web-sub000/internal/config"
	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// New builds the gateway selected by cfg.Driver.
func New(cfg config.NotifyConfig, log *logger.Logger, m *metrics.Metrics) (services.NotificationGateway, error) {
	switch cfg.Driver {
	case "", "log":
		return NewMailGateway(NewLogMailer(log), cfg.Timeout, log, m), nil
	case "smtp":
		mailer := NewSMTPMailer(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
		return NewMailGateway(mailer, cfg.Timeout, log, m), nil
	case "webhook":
		return NewWebhookGateway(cfg.WebhookURL, cfg.WebhookSecret, cfg.Timeout, log, m), nil
	}
	return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
}
