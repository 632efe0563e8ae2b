package dep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"phishsim/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *entity.SMTPProfile {
	return entity.NewSMTPProfile(1, "corp mail", "smtp.corp.example.com", 587, "IT Support", "it@corp.example.com")
}

func TestNewEmailService_PicksTransport(t *testing.T) {
	ctx := context.Background()

	svc, err := NewEmailService(ctx, testProfile())
	require.NoError(t, err)
	assert.IsType(t, new(smtpService), svc)

	profile := testProfile()
	key := "xkeysib-test"
	profile.APIKey = &key

	svc, err = NewEmailService(ctx, profile)
	require.NoError(t, err)
	assert.IsType(t, new(brevoService), svc)
}

func TestBuildMessage(t *testing.T) {
	s := &smtpService{profile: testProfile()}

	msg := string(s.buildMessage("abc@smtp.corp.example.com", &SendEmail{
		To:          "ann@corp.example.com",
		Subject:     "Action required",
		HtmlContent: "<p>hi</p>",
	}))

	assert.Contains(t, msg, "From: IT Support <it@corp.example.com>\r\n")
	assert.Contains(t, msg, "To: ann@corp.example.com\r\n")
	assert.Contains(t, msg, "Subject: Action required\r\n")
	assert.Contains(t, msg, "Message-ID: <abc@smtp.corp.example.com>\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>\r\n"))
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Diagnostic: "smtp send failed", Err: cause}

	assert.Contains(t, err.Error(), "smtp send failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)

	bare := &TransportError{Diagnostic: "probe returned 401"}
	assert.Equal(t, "transport error: probe returned 401", bare.Error())
}

func TestBrevoSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "xkeysib-test", r.Header.Get("api-key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Action required", body["subject"])

		_ = json.NewEncoder(w).Encode(map[string]string{"messageId": "brevo-123"})
	}))
	defer srv.Close()

	oldURL := brevoSendURL
	brevoSendURL = srv.URL
	defer func() {
		brevoSendURL = oldURL
	}()

	svc := &brevoService{apiKey: "xkeysib-test", profile: testProfile()}

	messageID, err := svc.Send(context.Background(), &SendEmail{
		To:          "ann@corp.example.com",
		Subject:     "Action required",
		HtmlContent: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "brevo-123", messageID)
}

func TestBrevoSend_ApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Key not found", "code": "unauthorized"})
	}))
	defer srv.Close()

	oldURL := brevoSendURL
	brevoSendURL = srv.URL
	defer func() {
		brevoSendURL = oldURL
	}()

	svc := &brevoService{apiKey: "bad", profile: testProfile()}

	_, err := svc.Send(context.Background(), &SendEmail{To: "ann@corp.example.com"})
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.Diagnostic, "Key not found")
}

func TestBrevoVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "xkeysib-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	oldURL := brevoAccountURL
	brevoAccountURL = srv.URL
	defer func() {
		brevoAccountURL = oldURL
	}()

	assert.NoError(t, (&brevoService{apiKey: "xkeysib-test"}).Verify(context.Background()))
	assert.Error(t, (&brevoService{apiKey: "bad"}).Verify(context.Background()))
}
