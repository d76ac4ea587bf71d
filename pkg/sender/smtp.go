package sender

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog"

	"github.com/oakmail/courier/pkg/config"
)

// StrategySMTP identifies the credentialed SMTP transport.
const StrategySMTP = "smtp"

// SMTPStrategy submits mail through an arbitrary SMTP server with plain
// username/password authentication, optionally upgrading via STARTTLS first.
type SMTPStrategy struct {
	log  zerolog.Logger
	dial func(cfg config.SMTPConfig) (Session, error)
}

var _ Strategy = (*SMTPStrategy)(nil)

func NewSMTPStrategy(log zerolog.Logger) *SMTPStrategy {
	return &SMTPStrategy{
		log:  log,
		dial: dialSMTP,
	}
}

func (s *SMTPStrategy) Name() string { return StrategySMTP }

func (s *SMTPStrategy) Viable(cfg *config.Config, opts Options) bool {
	return cfg.SMTP.Enabled()
}

func (s *SMTPStrategy) Send(ctx context.Context, cfg *config.Config, msg *Message) error {
	sess, err := s.dial(cfg.SMTP)
	if err != nil {
		return err
	}
	s.log.Info().Str("server", cfg.SMTP.Server).Msg("Connected to SMTP server using account credentials.")

	return deliver(sess, cfg, msg)
}

func dialSMTP(cfg config.SMTPConfig) (Session, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)

	var (
		c   *smtp.Client
		err error
	)
	if cfg.StartTLS {
		c, err = smtp.DialStartTLS(addr, &tls.Config{ServerName: cfg.Server})
	} else {
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", cfg.Username, cfg.Password)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("authentication rejected by %s: %w", addr, err)
		}
	}

	return c, nil
}
