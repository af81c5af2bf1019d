// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// dialTimeout bounds connection setup when the caller's context has no deadline.
const dialTimeout = 10 * time.Second

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport delivers messages through an SMTP relay, upgrading with STARTTLS when offered.
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport validates the relay settings.
func NewSMTPTransport(config SMTPConfig) (*SMTPTransport, error) {
	if config.Host == "" || config.Port == 0 || strings.TrimSpace(config.From) == "" {
		return nil, errors.New("mail: SMTP host, port and sender are required")
	}
	return &SMTPTransport{config: config}, nil
}

// Send implements [Transport].
func (transport *SMTPTransport) Send(ctx context.Context, message Message) error {
	address := net.JoinHostPort(transport.config.Host, strconv.Itoa(transport.config.Port))

	dialer := net.Dialer{Timeout: dialTimeout}
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = connection.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(connection, transport.config.Host)
	if err != nil {
		_ = connection.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: transport.config.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if transport.config.Username != "" {
		auth := smtp.PlainAuth("", transport.config.Username, transport.config.Password, transport.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	sender, err := envelopeAddress(transport.config.From)
	if err != nil {
		return err
	}
	if err := client.Mail(sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(message.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(transport.compose(message)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	return client.Quit()
}

func (transport *SMTPTransport) compose(message Message) []byte {
	return []byte("From: " + transport.config.From + "\r\n" +
		"To: " + message.To + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("UTF-8", message.Subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + message.HTML)
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) (string, error) {
	start, end := strings.LastIndex(from, "<"), strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return from[start+1 : end], nil
	}
	if strings.Contains(from, "@") {
		return strings.TrimSpace(from), nil
	}
	return "", fmt.Errorf("mail: invalid sender %q", from)
}
