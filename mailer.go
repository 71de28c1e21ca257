package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var orderPlacedHTML = template.Must(template.New("order").Parse(`<p>Dear {{.CustomerName}},</p>
<p>Thank you for your order. We have received it and will let you know when it ships.</p>
<table>
<tr><td>Order</td><td>{{.ID.Hex}}</td></tr>
<tr><td>Product</td><td>{{.ProductName}}</td></tr>
<tr><td>Price</td><td>&#8377; {{printf "%.2f" .Price}}</td></tr>
<tr><td>Deliver to</td><td>{{.Address}}, {{.City}}, {{.Taluka}} - {{.Pincode}}</td></tr>
</table>`))

// dialer is the part of gomail.Dialer the mailer uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpMailer struct {
	sender string
	d      dialer
	log    *zap.Logger
}

func newSMTPMailer(host string, port int, username, password, sender string, log *zap.Logger) (*smtpMailer, error) {
	if host == "" || port == 0 || sender == "" {
		return nil, fmt.Errorf("SMTP host, port and sender must be configured")
	}
	d := gomail.NewDialer(host, port, username, password)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	if port == 465 {
		d.SSL = true
	}
	return &smtpMailer{sender: sender, d: d, log: log.Named("mailer")}, nil
}

func (m *smtpMailer) OrderPlaced(ctx context.Context, o Order) error {
	if o.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", o.ID.Hex())
	}

	var body strings.Builder
	if err := orderPlacedHTML.Execute(&body, o); err != nil {
		return fmt.Errorf("render order email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", o.CustomerEmail)
	msg.SetHeader("Subject", "Order received: "+o.ProductName)
	msg.SetBody("text/html", body.String())
	msg.AddAlternative("text/plain", fmt.Sprintf("Order %s for %s (%.2f) received. Status: %s.",
		o.ID.Hex(), o.ProductName, float64(o.Price), o.Status))

	done := make(chan error, 1)
	go func() {
		done <- m.d.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	m.log.Info("order confirmation sent", zap.String("orderID", o.ID.Hex()), zap.String("to", o.CustomerEmail))
	return nil
}
