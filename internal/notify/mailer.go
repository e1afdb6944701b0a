package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/validy-app/validy/internal/certificate"
)

const expirationTpl = `
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; background-color: #f6f9fc; margin: 0; padding: 20px;">
	<div style="max-width: 560px; margin: 0 auto; background-color: #ffffff; border-radius: 5px; padding: 32px;">
		<h1 style="color: #d93025;">Expiration Alert</h1>
		<p>The digital certificate below is close to its expiration date and needs attention.</p>
		<div style="background-color: #fff4e5; border-radius: 5px; padding: 16px;">
			<p style="margin: 4px 0; color: #666;">Holder:</p>
			<p style="margin: 4px 0;"><strong>{{.CertificateName}}</strong></p>
			<p style="margin: 4px 0; color: #666;">Tax ID:</p>
			<p style="margin: 4px 0;"><strong>{{.TaxID}}</strong></p>
			<p style="margin: 4px 0; color: #666;">Certificate type:</p>
			<p style="margin: 4px 0;"><strong>{{.Type}}</strong></p>
			<p style="margin: 4px 0; color: #666;">Expiration date:</p>
			<p style="margin: 4px 0;"><strong>{{.ExpiresAt}}</strong></p>
			<p style="margin: 12px 0 4px; color: #d93025;">Only <strong>{{.DaysRemaining}} days</strong> left until expiration.</p>
		</div>
		<hr style="border: none; border-top: 1px solid #e6ebf1; margin: 24px 0;">
		<p style="color: #8898aa; font-size: 12px;">
			This is an automated notification from Validy.<br>
			Please arrange the renewal as soon as possible.
		</p>
	</div>
</body>
</html>
`

// Mailer renders and sends expiration-warning emails. It implements
// certificate.Notifier.
type Mailer struct {
	client *ResendClient
	from   string
	tpl    *template.Template
}

// NewMailer creates a mailer sending from the given address.
func NewMailer(client *ResendClient, from string) (*Mailer, error) {
	tpl, err := template.New("expiration").Parse(expirationTpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expiration email template: %w", err)
	}
	return &Mailer{client: client, from: from, tpl: tpl}, nil
}

// Send delivers one expiration warning for the certificate to all of its
// notification recipients. A transport failure for the whole send is one
// failed result; there is no per-recipient tracking.
func (m *Mailer) Send(ctx context.Context, cert certificate.Certificate, daysRemaining int) certificate.NotificationResult {
	result := certificate.NotificationResult{
		CertificateID:   cert.ID,
		CertificateName: cert.Name,
		Recipients:      cert.NotificationEmails,
	}

	var body bytes.Buffer
	err := m.tpl.Execute(&body, struct {
		CertificateName string
		TaxID           string
		Type            certificate.CertificateType
		ExpiresAt       string
		DaysRemaining   int
	}{
		CertificateName: cert.Name,
		TaxID:           cert.TaxID,
		Type:            cert.Type,
		ExpiresAt:       formatExpiry(cert.ExpiresAt),
		DaysRemaining:   daysRemaining,
	})
	if err != nil {
		result.Error = fmt.Sprintf("failed to render email: %v", err)
		return result
	}

	msg := Message{
		From:    m.from,
		To:      cert.NotificationEmails,
		Subject: fmt.Sprintf("Certificate %s expires in %d days", cert.Name, daysRemaining),
		HTML:    body.String(),
	}

	if err := m.client.SendEmail(ctx, msg); err != nil {
		result.Error = err.Error()
		return result
	}

	slog.Info("expiration notification sent",
		"certificate", cert.ID, "name", cert.Name, "recipients", len(cert.NotificationEmails))
	result.Success = true
	return result
}

// formatExpiry renders the expiration date in the DD/MM/YYYY form recipients
// expect.
func formatExpiry(t time.Time) string {
	return t.Format("02/01/2006")
}
