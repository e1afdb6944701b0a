package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validy-app/validy/internal/certificate"
)

func testCert() certificate.Certificate {
	return certificate.Certificate{
		ID:                 7,
		Name:               "Empresa Exemplo",
		TaxID:              "12.345.678/0001-99",
		Type:               certificate.TypeA1,
		ExpiresAt:          time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		NotificationEmails: []string{"ops@example.com", "admin@example.com"},
		Status:             certificate.StatusPending,
	}
}

func TestMailer_SendDeliversRenderedEmail(t *testing.T) {
	var got Message
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer server.Close()

	client := NewResendClientWithBaseURL("re_test_key", server.URL)
	mailer, err := NewMailer(client, "Validy <onboarding@resend.dev>")
	require.NoError(t, err)

	result := mailer.Send(context.Background(), testCert(), 5)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, int64(7), result.CertificateID)
	assert.Equal(t, []string{"ops@example.com", "admin@example.com"}, result.Recipients)

	assert.Equal(t, "Bearer re_test_key", gotAuth)
	assert.Equal(t, "Validy <onboarding@resend.dev>", got.From)
	assert.Equal(t, []string{"ops@example.com", "admin@example.com"}, got.To)
	assert.Equal(t, "Certificate Empresa Exemplo expires in 5 days", got.Subject)
	assert.Contains(t, got.HTML, "Empresa Exemplo")
	assert.Contains(t, got.HTML, "12.345.678/0001-99")
	assert.Contains(t, got.HTML, "15/03/2025")
	assert.Contains(t, got.HTML, "5 days")
}

func TestMailer_SendReportsProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer server.Close()

	client := NewResendClientWithBaseURL("re_test_key", server.URL)
	mailer, err := NewMailer(client, "bogus")
	require.NoError(t, err)

	result := mailer.Send(context.Background(), testCert(), 5)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid from address")
	assert.Contains(t, result.Error, "422")
}

func TestMailer_SendReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewResendClientWithBaseURL("re_test_key", server.URL)
	mailer, err := NewMailer(client, "Validy <onboarding@resend.dev>")
	require.NoError(t, err)

	result := mailer.Send(context.Background(), testCert(), 5)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestResendClient_SendEmailHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body first; unread request bytes keep the handler from
		// observing the client disconnect.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewResendClientWithBaseURL("re_test_key", server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.SendEmail(ctx, Message{From: "a@b.co", To: []string{"c@d.co"}, Subject: "x", HTML: "<p>x</p>"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
