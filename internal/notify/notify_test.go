package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inspirimental/addonware-web-sub000/internal/config"
	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, e Email) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.err
}

var submission = services.SubmissionMessage{
	To:                 "max@example.de",
	Name:               "Max",
	Email:              "max@example.de",
	QuestionnaireTitle: "Readiness check",
	ResponseID:         "r1",
	Lines: []services.AnswerLine{
		{Question: "Company size?", Answer: "1-10"},
		{Question: "How ready are you?", Answer: "4 of 5"},
	},
}

func TestMailGatewayRendersMessages(t *testing.T) {
	mailer := &recordingMailer{}
	m := metrics.Nop()
	g := NewMailGateway(mailer, time.Second, logger.Discard(), m)

	require.NoError(t, g.SendUnlockLink(context.Background(), services.UnlockLinkMessage{
		Email: "max@example.de", Name: "Max", ResourceTitle: "Warehouse automation",
		Link: "https://addonware.test/case-studies/cs-1?unlock_token=abc", Locale: "de",
	}))
	require.NoError(t, g.SendSubmissionConfirmation(context.Background(), submission))

	require.Len(t, mailer.sent, 2)
	unlock := mailer.sent[0]
	assert.Equal(t, "max@example.de", unlock.To)
	assert.Equal(t, `Ihr Link zur Case Study "Warehouse automation"`, unlock.Subject)
	assert.Contains(t, unlock.Body, "unlock_token=abc")

	conf := mailer.sent[1]
	assert.Equal(t, `Thank you for taking part in "Readiness check"`, conf.Subject)
	assert.Contains(t, conf.Body, "- How ready are you?: 4 of 5")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("unlock_link", "sent")))
}

func TestMailGatewayReportsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay refused")}
	m := metrics.Nop()
	g := NewMailGateway(mailer, time.Second, nil, m)

	err := g.SendSubmissionNotice(context.Background(), submission)
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("submission_notice", "error")))
}

func TestWebhookGatewaySignsEvents(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, "s3cret", time.Second, nil, nil)
	require.NoError(t, g.SendUnlockLink(context.Background(), services.UnlockLinkMessage{
		Email: "a@b.de", Token: "tok123", ResourceID: "cs-1", Link: "https://x/cs-1?unlock_token=tok123",
	}))

	assert.Equal(t, Sign([]byte("s3cret"), gotBody), gotSig)
	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, "unlock_link", ev.Type)
	assert.Equal(t, "tok123", ev.Payload["token"])
	assert.Equal(t, "cs-1", ev.Payload["resourceId"])
}

func TestWebhookGatewayRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, "", time.Second, nil, nil)
	assert.Error(t, g.SendSubmissionNotice(context.Background(), submission))
}

// fakeSMTP speaks just enough SMTP for one message and returns what it received.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	out := make(chan string, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		reply("220 fake ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					reply("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				reply("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPMailerDelivers(t *testing.T) {
	addr, received := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	mailer := NewSMTPMailer(SMTPConfig{Host: host, From: "noreply@addonware.test"})
	mailer.dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(host, port))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mailer.Send(ctx, Email{To: "max@example.de", Subject: "Hi\r\nBcc: evil@x", Body: "line1\nline2"}))

	msg := <-received
	assert.Contains(t, msg, "To: max@example.de\r\n")
	assert.Contains(t, msg, "Subject: Hi Bcc: evil@x\r\n")
	assert.Contains(t, msg, "line1\r\nline2")
}

func TestNewSelectsDriver(t *testing.T) {
	g, err := New(config.NotifyConfig{Driver: "log"}, logger.Discard(), nil)
	require.NoError(t, err)
	assert.IsType(t, &MailGateway{}, g)

	g, err = New(config.NotifyConfig{Driver: "webhook", WebhookURL: "http://localhost"}, logger.Discard(), nil)
	require.NoError(t, err)
	assert.IsType(t, &WebhookGateway{}, g)

	_, err = New(config.NotifyConfig{Driver: "pigeon"}, logger.Discard(), nil)
	assert.Error(t, err)
}
