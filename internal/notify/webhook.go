package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Addonware-Signature"

// Event is the body posted to the webhook.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// unlockPayload includes the token: the receiver needs it to send the link.
type unlockPayload struct {
	services.UnlockLinkMessage
	Token string `json:"token"`
}

// WebhookGateway forwards notifications to an HTTP endpoint (for example a
// mail relay or automation tool) instead of speaking SMTP itself.
type WebhookGateway struct {
	url     string
	secret  []byte
	client  *http.Client
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewWebhookGateway(url, secret string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *WebhookGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &WebhookGateway{
		url:     url,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: timeout},
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
		metrics: m,
	}
}

func (g *WebhookGateway) SendUnlockLink(ctx context.Context, msg services.UnlockLinkMessage) error {
	return g.post(ctx, "unlock_link", unlockPayload{UnlockLinkMessage: msg, Token: msg.Token})
}

func (g *WebhookGateway) SendSubmissionConfirmation(ctx context.Context, msg services.SubmissionMessage) error {
	return g.post(ctx, "submission_confirmation", msg)
}

func (g *WebhookGateway) SendSubmissionNotice(ctx context.Context, msg services.SubmissionMessage) error {
	return g.post(ctx, "submission_notice", msg)
}

// Sign returns the signature the receiver should compare against SignatureHeader.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (g *WebhookGateway) post(ctx context.Context, kind string, payload any) error {
	err := g.deliver(ctx, kind, payload)
	if err != nil {
		g.metrics.Notifications.WithLabelValues(kind, "error").Inc()
		g.log.WithError(err).WithField("kind", kind).Warn("webhook delivery failed")
		return err
	}
	g.metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	return nil
}

func (g *WebhookGateway) deliver(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(Event{ID: uuid.NewString(), Type: kind, Time: g.now(), Payload: payload})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(g.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(g.secret, body))
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", kind, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", kind, resp.StatusCode)
	}
	return nil
}
