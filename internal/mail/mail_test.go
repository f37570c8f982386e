package mail

import (
	"bytes"
	"context"
	"io"
	"mime"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() (*models.Invoice, *models.User) {
	user := &models.User{UID: "u1", DisplayName: "Dana", BusinessInfo: models.BusinessInfo{Name: "Dana Dev", Email: "dana@dev.test", Address: "1 Loop"}}
	inv := &models.Invoice{
		Number:  "INV-2026-004",
		Client:  models.ClientSnapshot{Name: "Acme <Corp>", Email: "ap@acme.test"},
		DueDate: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Total:   decimal.RequireFromString("1234.5"),
	}
	return inv, user
}

func TestCompose(t *testing.T) {
	inv, user := fixture()
	msg, err := Compose(inv, user, []byte("%PDF-1.3"))
	require.NoError(t, err)

	assert.Equal(t, "ap@acme.test", msg.To)
	assert.Equal(t, "dana@dev.test", msg.ReplyTo)
	assert.Equal(t, "Invoice INV-2026-004 from Dana Dev", msg.Subject)
	assert.Contains(t, msg.HTML, "$1,234.50")
	assert.Contains(t, msg.HTML, "April 30, 2026")
	assert.Contains(t, msg.HTML, "Acme &lt;Corp&gt;")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "INV-2026-004.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
}

func TestComposeNoRecipient(t *testing.T) {
	inv, user := fixture()
	inv.Client.Email = ""
	_, err := Compose(inv, user, nil)
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestEncodeParses(t *testing.T) {
	inv, user := fixture()
	msg, err := Compose(inv, user, []byte("%PDF-1.3 body"))
	require.NoError(t, err)

	raw, err := Encode("invoices@dev.test", msg, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "ap@acme.test", parsed.Header.Get("To"))
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)
	assert.True(t, strings.HasPrefix(parsed.Header.Get("Content-Type"), "multipart/mixed; boundary="))

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `filename=INV-2026-004.pdf`)
}

func TestSMTPSender(t *testing.T) {
	inv, user := fixture()
	msg, err := Compose(inv, user, []byte("pdf"))
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	s := &SMTPSender{
		cfg: config.MailConfig{Host: "smtp.test", Port: 2525, From: "invoices@dev.test"},
		send: func(addr string, _ smtp.Auth, from string, to []string, _ []byte) error {
			gotAddr, gotFrom, gotTo = addr, from, to
			return nil
		},
	}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, "invoices@dev.test", gotFrom)
	assert.Equal(t, []string{"ap@acme.test"}, gotTo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, msg), context.Canceled)
}

func TestNewSender(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := NewSender(config.MailConfig{}, log)
	require.IsType(t, &LogSender{}, s)
	require.NoError(t, s.Send(context.Background(), Message{To: "x@y.test", Subject: "hi"}))
	assert.Contains(t, buf.String(), `"to":"x@y.test"`)

	assert.IsType(t, &SMTPSender{}, NewSender(config.MailConfig{Host: "smtp.test", Port: 25}, log))
}
