// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail renders and delivers the transactional e-mails of the auth flow.

Architecture:

  - Transport: Delivers a fully rendered [Message]. [SMTPTransport] is the production one.
  - Mailer: Renders html/template bodies and hands them to a Transport.

Delivery errors are returned to the caller, who decides whether they are fatal.
*/
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a rendered e-mail ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, message Message) error
}

// Mailer composes the auth e-mails.
type Mailer struct {
	transport Transport
	clientURL string
	templates *template.Template
	logger    *slog.Logger
}

// NewMailer parses the embedded templates. clientURL is the frontend origin used in links.
func NewMailer(transport Transport, clientURL string, logger *slog.Logger) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: failed to parse templates: %w", err)
	}

	return &Mailer{
		transport: transport,
		clientURL: strings.TrimRight(clientURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// SendVerificationEmail delivers the 6-digit OTP.
func (mailer *Mailer) SendVerificationEmail(ctx context.Context, email, name, otp string) error {
	return mailer.send(ctx, email, "Verify Your Email Address", "verification.html", map[string]any{
		"FirstName": firstName(name),
		"OTP":       otp,
	})
}

// SendPasswordResetEmail delivers the reset link built from the client URL.
func (mailer *Mailer) SendPasswordResetEmail(ctx context.Context, email, name, token string) error {
	resetURL := mailer.clientURL + "/auth/reset-password?token=" + url.QueryEscape(token)

	return mailer.send(ctx, email, "Reset Your Password", "reset.html", map[string]any{
		"FirstName": firstName(name),
		"ResetURL":  resetURL,
	})
}

// SendWelcomeEmail greets a freshly verified user.
func (mailer *Mailer) SendWelcomeEmail(ctx context.Context, email, name string) error {
	return mailer.send(ctx, email, "Welcome to Nexus!", "welcome.html", map[string]any{
		"FirstName":    firstName(name),
		"DashboardURL": mailer.clientURL + "/dashboard",
	})
}

func (mailer *Mailer) send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	var body bytes.Buffer
	if err := mailer.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("mail: failed to render %s: %w", templateName, err)
	}

	if err := mailer.transport.Send(ctx, Message{To: to, Subject: subject, HTML: body.String()}); err != nil {
		return fmt.Errorf("mail: failed to send %s: %w", templateName, err)
	}

	mailer.logger.InfoContext(ctx, "mail_sent", slog.String("template", templateName))
	return nil
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
