package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent chan *gomail.Message
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	for _, msg := range m {
		f.sent <- msg
	}
	return nil
}

func TestEmailDisabled(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/email", map[string]interface{}{
		"name": "Ana", "email": "ana@example.com", "message": "Hola",
	}, "")
	requireStatus(t, rec, http.StatusServiceUnavailable)
}

func TestEmailQueued(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeSender{sent: make(chan *gomail.Message, 1)}
	m, err := mailer.NewWithSender(config.MailConfig{Host: "smtp", To: "salon@example.com", User: "web@example.com", Workers: 1}, sender)
	require.NoError(t, err)
	t.Cleanup(m.Release)
	env.app.OverrideMailer(m)

	rec := env.do(http.MethodPost, "/api/email", map[string]interface{}{"name": "Ana", "message": "Hola"}, "")
	requireStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPost, "/api/email", map[string]interface{}{
		"name": "Ana", "email": "ana@example.com", "phone": "600000000", "message": "Quiero una cita",
	}, "")
	requireStatus(t, rec, http.StatusAccepted)
	assert.JSONEq(t, `{"message":"Email queued"}`, rec.Body.String())

	select {
	case msg := <-sender.sent:
		assert.Equal(t, []string{"salon@example.com"}, msg.GetHeader("To"))
	case <-time.After(2 * time.Second):
		t.Fatal("email was not sent")
	}
}
