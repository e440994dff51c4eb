// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends mail through a single SMTP relay.
type Mailer struct {
	cfg    Config
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

// New builds a Mailer. Returns nil when no host is configured so callers can
// treat mail as disabled.
func New(cfg Config, logger *slog.Logger) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (m *Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
}

func (m *Mailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

// SendInvoice mails the invoice PDF to the customer.
func (m *Mailer) SendInvoice(ctx context.Context, to, orderNumber string, pdf []byte) error {
	if m == nil {
		return nil
	}
	subject := fmt.Sprintf("Factura %s - Exotic Pets", orderNumber)
	body := fmt.Sprintf("Hola,\r\n\r\nAdjuntamos la factura %s de tu compra en Exotic Pets.\r\n\r\nGracias por tu compra.\r\n", orderNumber)
	msg := buildMIME(m.cfg.From, to, subject, body, fmt.Sprintf("%s.pdf", orderNumber), pdf)
	if err := m.send(m.addr(), m.auth(), m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mailer: send invoice %s: %w", orderNumber, err)
	}
	m.logger.Info("mailer: invoice sent", slog.String("to", to), slog.String("order", orderNumber))
	return nil
}

// SendLowStockAlert notifies operations about products running low.
func (m *Mailer) SendLowStockAlert(ctx context.Context, to string, lines []string) error {
	if m == nil || len(lines) == 0 {
		return nil
	}
	body := "Productos con inventario bajo:\r\n\r\n" + strings.Join(lines, "\r\n") + "\r\n"
	msg := buildMIME(m.cfg.From, to, "Alerta de inventario bajo", body, "", nil)
	if err := m.send(m.addr(), m.auth(), m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mailer: send low stock alert: %w", err)
	}
	return nil
}

const mimeBoundary = "exopet-mime-boundary"

func buildMIME(from, to, subject, body, attachmentName string, attachment []byte) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "From: %s\r\n", from)
	fmt.Fprintf(buf, "To: %s\r\n", to)
	fmt.Fprintf(buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")

	if attachment == nil {
		fmt.Fprintf(buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(body)
		return buf.Bytes()
	}

	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)
	fmt.Fprintf(buf, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	fmt.Fprintf(buf, "\r\n--%s\r\n", mimeBoundary)
	fmt.Fprintf(buf, "Content-Type: application/pdf\r\n")
	fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n", attachmentName)
	fmt.Fprintf(buf, "Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	fmt.Fprintf(buf, "\r\n--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}
