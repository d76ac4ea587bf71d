package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog"

	"github.com/oakmail/courier/pkg/config"
)

// StrategyRelay identifies the ISP relay transport.
const StrategyRelay = "isp-relay"

// RelayStrategy submits mail through a pre-authorized ISP relay on the
// standard SMTP port without authentication.
type RelayStrategy struct {
	log  zerolog.Logger
	dial func(addr string) (Session, error)
}

var _ Strategy = (*RelayStrategy)(nil)

func NewRelayStrategy(log zerolog.Logger) *RelayStrategy {
	return &RelayStrategy{
		log: log,
		dial: func(addr string) (Session, error) {
			return smtp.Dial(addr)
		},
	}
}

func (s *RelayStrategy) Name() string { return StrategyRelay }

func (s *RelayStrategy) Viable(cfg *config.Config, opts Options) bool {
	return opts.ForceRelay || cfg.ISP.Enabled()
}

func (s *RelayStrategy) Send(ctx context.Context, cfg *config.Config, msg *Message) error {
	addr := cfg.ISP.Relay
	if addr == "" {
		return fmt.Errorf("ISP relay forced but ISP.relay is not configured")
	}
	if !strings.Contains(addr, ":") {
		addr += ":25"
	}

	sess, err := s.dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to ISP relay %s: %w", addr, err)
	}
	s.log.Info().Str("relay", addr).Msg("Connected to SMTP server (ISP relay).")

	return deliver(sess, cfg, msg)
}
