package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// SMTPConfig agrupa los parámetros del servidor saliente.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool   // sólo dev
}

// SMTPSink resuelve el email del usuario vía el directorio y manda el aviso
// por SMTP. El Enqueue sólo empuja a un canal; un worker drena en background
// para que las transiciones de membership no bloqueen en I/O de red.
type SMTPSink struct {
	cfg   SMTPConfig
	users directory.Store
	queue chan Notification
	done  chan struct{}
}

// NewSMTPSink arranca el worker de envío.
func NewSMTPSink(cfg SMTPConfig, users directory.Store) *SMTPSink {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	s := &SMTPSink{
		cfg:   cfg,
		users: users,
		queue: make(chan Notification, 256),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *SMTPSink) Enqueue(ctx context.Context, userID, typ, message string) error {
	select {
	case s.queue <- Notification{UserID: userID, Type: typ, Message: message}:
		return nil
	default:
		// cola llena: el aviso se pierde, el negocio no. Queda en el log.
		logger.From(ctx).Warn("cola de notificaciones llena, aviso descartado",
			logger.UserID(userID),
			logger.String("type", typ),
		)
		return nil
	}
}

// Close frena el worker. Notificaciones ya encoladas se intentan enviar.
func (s *SMTPSink) Close() {
	close(s.queue)
	<-s.done
}

func (s *SMTPSink) worker() {
	defer close(s.done)
	for n := range s.queue {
		if err := s.deliver(n); err != nil {
			logger.L().Warn("envío de notificación falló",
				logger.UserID(n.UserID),
				logger.String("type", n.Type),
				logger.Err(err),
			)
		}
	}
}

func (s *SMTPSink) deliver(n Notification) error {
	u, err := s.users.FindByID(context.Background(), n.UserID)
	if err != nil {
		return fmt.Errorf("notify: lookup user: %w", err)
	}
	if u.Email == "" {
		// sin email no hay a dónde mandar; no es un error del sistema
		logger.L().Debug("usuario sin email, notificación omitida", logger.UserID(n.UserID))
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", u.Email)
	m.SetHeader("Subject", subjectFor(n.Type))
	m.SetBody("text/plain", n.Message)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}
	return d.DialAndSend(m)
}

func subjectFor(typ string) string {
	switch typ {
	case TypeApplicationApproved:
		return "Tu solicitud de membresía fue aprobada"
	case TypeApplicationRejected:
		return "Sobre tu solicitud de membresía"
	default:
		return "Notificación"
	}
}

var _ Sink = (*SMTPSink)(nil)
