package notify

import (
	"context"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

const DefaultTimeout = 10 * time.Second

// MailGateway renders messages and hands them to a Mailer. Every send is
// bounded by the configured timeout.
type MailGateway struct {
	mailer  Mailer
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewMailGateway(mailer Mailer, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *MailGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &MailGateway{mailer: mailer, timeout: timeout, log: log, metrics: m}
}

func (g *MailGateway) SendUnlockLink(ctx context.Context, msg services.UnlockLinkMessage) error {
	e, err := RenderUnlockLink(msg)
	if err != nil {
		return err
	}
	return g.send(ctx, "unlock_link", e)
}

func (g *MailGateway) SendSubmissionConfirmation(ctx context.Context, msg services.SubmissionMessage) error {
	e, err := RenderConfirmation(msg)
	if err != nil {
		return err
	}
	return g.send(ctx, "submission_confirmation", e)
}

func (g *MailGateway) SendSubmissionNotice(ctx context.Context, msg services.SubmissionMessage) error {
	e, err := RenderNotice(msg)
	if err != nil {
		return err
	}
	return g.send(ctx, "submission_notice", e)
}

func (g *MailGateway) send(ctx context.Context, kind string, e Email) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.mailer.Send(ctx, e); err != nil {
		g.metrics.Notifications.WithLabelValues(kind, "error").Inc()
		g.log.WithError(err).WithField("kind", kind).Warn("email not sent")
		return err
	}
	g.metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	return nil
}

// LogMailer writes emails to the log instead of sending them. Used in
// development and when no mail transport is configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.log.WithField("to", e.To).WithField("subject", e.Subject).Info(e.Body)
	return nil
}
