// Package mail composes and delivers invoice emails.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/models"
)

// ErrNoRecipient is returned when the invoice client has no email address.
var ErrNoRecipient = errors.New("mail: client has no email address")

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a composed email ready to hand to a Sender.
type Message struct {
	To          string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
  <head><meta charset="UTF-8" /></head>
  <body style="margin:0;padding:0;font-family:'Courier New',monospace;">
    <div style="max-width:600px;margin:40px auto;padding:20px;">
      <h1 style="font-size:24px;">Invoice {{.Number}}</h1>
      <div>From: {{.Business}}</div>
      <p>Hi {{.Client}},</p>
      <p>Your invoice is ready. Please find the details below:</p>
      <table style="width:100%;border-collapse:collapse;">
        <tr><td>Amount Due:</td><td style="text-align:right;font-weight:bold;">{{.Total}}</td></tr>
        <tr><td>Due Date:</td><td style="text-align:right;">{{.DueDate}}</td></tr>
        <tr><td>Invoice Number:</td><td style="text-align:right;">{{.Number}}</td></tr>
      </table>
      <p style="font-size:13px;">The invoice PDF is attached to this email.</p>
      <p style="font-size:12px;text-align:center;">{{.Business}}{{with .Address}}<br />{{.}}{{end}}{{with .Email}}<br />{{.}}{{end}}</p>
    </div>
  </body>
</html>
`))

// Compose builds the email sent to the invoice client with the rendered PDF attached.
func Compose(inv *models.Invoice, user *models.User, pdf []byte) (Message, error) {
	if inv.Client.Email == "" {
		return Message{}, ErrNoRecipient
	}
	business := user.BusinessName()
	data := struct {
		Number, Business, Client, Total, DueDate, Address, Email string
	}{
		Number:   inv.Number,
		Business: business,
		Client:   inv.Client.Name,
		Total:    calc.FormatCurrency(inv.Total),
		DueDate:  inv.DueDate.Format("January 2, 2006"),
		Address:  user.BusinessInfo.Address,
		Email:    user.BusinessInfo.Email,
	}
	var body bytes.Buffer
	if err := invoiceTmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("mail: render body: %w", err)
	}
	return Message{
		To:      inv.Client.Email,
		ReplyTo: user.BusinessInfo.Email,
		Subject: fmt.Sprintf("Invoice %s from %s", inv.Number, business),
		HTML:    body.String(),
		Attachments: []Attachment{{
			Filename:    inv.Number + ".pdf",
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}, nil
}
