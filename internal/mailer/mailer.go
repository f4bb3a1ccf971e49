package mailer

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/peluqueria/salond/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when no SMTP host or recipient is set.
var ErrNotConfigured = errors.New("mail delivery is not configured")

// ContactMessage is a message sent from the public contact form.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Subject string `json:"subject" validate:"omitempty,max=200"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

// Sender delivers composed messages; *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers contact messages on a bounded worker pool.
type Mailer struct {
	from   string
	to     string
	dialer Sender
	pool   *ants.Pool
}

func New(cfg config.MailConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd)
	return NewWithSender(cfg, d)
}

// NewWithSender builds a mailer on an explicit transport.
func NewWithSender(cfg config.MailConfig, d Sender) (*Mailer, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create mail pool")
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Mailer{from: from, to: cfg.To, dialer: d, pool: pool}, nil
}

func (m *Mailer) compose(msg ContactMessage) *gomail.Message {
	subject := msg.Subject
	if subject == "" {
		subject = "Nuevo mensaje de contacto"
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", m.to)
	gm.SetAddressHeader("Reply-To", msg.Email, msg.Name)
	gm.SetHeader("Subject", subject)
	gm.SetBody("text/plain", fmt.Sprintf("Nombre: %s\nEmail: %s\nTeléfono: %s\n\n%s",
		msg.Name, msg.Email, msg.Phone, msg.Message))
	return gm
}

// Queue hands the message to the pool and returns without waiting for SMTP.
func (m *Mailer) Queue(msg ContactMessage) error {
	gm := m.compose(msg)
	err := m.pool.Submit(func() {
		if err := m.dialer.DialAndSend(gm); err != nil {
			zap.L().Error("contact email failed",
				zap.String("namespace", "mailer"),
				zap.String("reply_to", msg.Email),
				zap.Error(err))
			return
		}
		zap.L().Info("contact email sent", zap.String("namespace", "mailer"), zap.String("reply_to", msg.Email))
	})
	return errors.Wrap(err, "queue email")
}

// Release closes the pool; sends already running are not interrupted.
func (m *Mailer) Release() {
	m.pool.Release()
}
