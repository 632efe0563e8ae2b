package dep

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"time"

	"phishsim/entity"

	"github.com/cenkalti/backoff/v4"
	brevo "github.com/getbrevo/brevo-go/lib"
	"github.com/google/uuid"
)

const (
	implicitTLSPort = 465

	maxSendRetries = 2
)

var (
	brevoSendURL    = "https://api.brevo.com/v3/smtp/email"
	brevoAccountURL = "https://api.brevo.com/v3/account"
)

// TransportError wraps the provider's diagnostic for a failed send or
// verification probe.
type TransportError struct {
	Diagnostic string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Diagnostic, e.Err)
	}
	return fmt.Sprintf("transport error: %s", e.Diagnostic)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type SendEmail struct {
	To          string
	ToName      string
	Subject     string
	HtmlContent string
}

// EmailService is one reusable send handle built from an SMTP profile.
// The dispatch path builds one per campaign run, not per target.
type EmailService interface {
	// Send delivers one message and returns the message id.
	Send(ctx context.Context, sendEmail *SendEmail) (string, error)
	// Verify probes connectivity once. Its outcome is advisory: some
	// providers reject probes yet accept real mail.
	Verify(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewEmailService selects the transport from the profile: an API key means
// the Brevo transactional API, otherwise raw SMTP against host:port.
func NewEmailService(_ context.Context, profile *entity.SMTPProfile) (EmailService, error) {
	if profile.GetAPIKey() != "" {
		return &brevoService{
			apiKey:  profile.GetAPIKey(),
			profile: profile,
		}, nil
	}

	return &smtpService{
		profile: profile,
	}, nil
}

// ===== raw SMTP =====

type smtpService struct {
	profile *entity.SMTPProfile
}

func (s *smtpService) Send(ctx context.Context, sendEmail *SendEmail) (string, error) {
	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), s.profile.GetHost())
	msg := s.buildMessage(messageID, sendEmail)

	op := func() error {
		return s.sendOnce(ctx, sendEmail.To, msg)
	}

	// bounded in-request retry for transient failures; there is no durable
	// retry queue behind this
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSendRetries), ctx)); err != nil {
		return "", &TransportError{Diagnostic: fmt.Sprintf("smtp send to %s via %s failed", sendEmail.To, s.profile.Addr()), Err: err}
	}

	return messageID, nil
}

func (s *smtpService) sendOnce(_ context.Context, to string, msg []byte) error {
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Quit()
	}()

	if s.profile.GetUsername() != "" {
		auth := smtp.PlainAuth("", s.profile.GetUsername(), s.profile.GetPassword(), s.profile.GetHost())
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(s.profile.GetFromEmail()); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}

	return w.Close()
}

// dial opens the SMTP session: implicit TLS on the well-known port,
// opportunistic STARTTLS otherwise.
func (s *smtpService) dial() (*smtp.Client, error) {
	addr := s.profile.Addr()
	host := s.profile.GetHost()

	if s.profile.GetPort() == implicitTLSPort {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, host)
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			_ = client.Quit()
			return nil, err
		}
	}

	return client, nil
}

func (s *smtpService) Verify(_ context.Context) error {
	client, err := s.dial()
	if err != nil {
		return &TransportError{Diagnostic: fmt.Sprintf("smtp verify against %s failed", s.profile.Addr()), Err: err}
	}

	return client.Quit()
}

func (s *smtpService) Close(_ context.Context) error {
	return nil
}

func (s *smtpService) buildMessage(messageID string, sendEmail *SendEmail) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.profile.GetFromName(), s.profile.GetFromEmail()))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", sendEmail.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", sendEmail.Subject))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s>\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(sendEmail.HtmlContent)
	buf.WriteString("\r\n")

	return buf.Bytes()
}

// ===== Brevo API =====

type brevoResp struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

type brevoService struct {
	apiKey  string
	profile *entity.SMTPProfile
}

func (s *brevoService) Send(ctx context.Context, sendEmail *SendEmail) (string, error) {
	body := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.profile.GetFromName(),
			Email: s.profile.GetFromEmail(),
		},
		ReplyTo: &brevo.SendSmtpEmailReplyTo{
			Email: s.profile.GetFromEmail(),
		},
		To:          []brevo.SendSmtpEmailTo{{Email: sendEmail.To, Name: sendEmail.ToName}},
		Subject:     sendEmail.Subject,
		HtmlContent: sendEmail.HtmlContent,
	}

	resp, err := s.postHttpRequest(ctx, brevoSendURL, body)
	if err != nil {
		return "", err
	}

	return resp.MessageID, nil
}

func (s *brevoService) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, brevoAccountURL, nil)
	if err != nil {
		return err
	}
	req.Header.Add("accept", "application/json")
	req.Header.Add("api-key", s.apiKey)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return &TransportError{Diagnostic: "brevo account probe failed", Err: err}
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return &TransportError{Diagnostic: fmt.Sprintf("brevo account probe returned %d", res.StatusCode)}
	}

	return nil
}

func (s *brevoService) Close(_ context.Context) error {
	return nil
}

func (s *brevoService) postHttpRequest(ctx context.Context, url string, body interface{}) (*brevoResp, error) {
	js, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(js))
	if err != nil {
		return nil, err
	}

	req.Header.Add("accept", "application/json")
	req.Header.Add("content-type", "application/json")
	req.Header.Add("api-key", s.apiKey)

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Diagnostic: "brevo request failed", Err: err}
	}

	defer func() {
		_ = res.Body.Close()
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	parsed := new(brevoResp)
	if err := json.Unmarshal(b, parsed); err != nil {
		return nil, err
	}

	if parsed.Message != "" {
		return nil, &TransportError{Diagnostic: fmt.Sprintf("brevo error: %s, code: %s", parsed.Message, parsed.Code)}
	}

	return parsed, nil
}
