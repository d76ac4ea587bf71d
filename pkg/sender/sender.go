package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/oakmail/courier/pkg/config"
	"github.com/oakmail/courier/pkg/errs"
	"github.com/oakmail/courier/pkg/token"
	"github.com/rs/zerolog"
)

// Subject and body used when sending in test mode, bypassing any
// caller-supplied content.
const (
	TestSubject = "Test Email"
	TestBody    = "This is a test email."
)

// Message is a single outbound email. At least one of Text/HTML should be
// present; an empty send is tolerated.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Options carry the per-send override flags.
type Options struct {
	// ForceRelay prefers the ISP relay even when better-ranked strategies
	// are configured.
	ForceRelay bool
	// Test replaces subject and body with fixed literals to validate the
	// configuration end to end.
	Test bool
}

// Result reports which strategy delivered the message.
type Result struct {
	Strategy string
}

// Session is an authenticated SMTP session ready to accept one message.
// *smtp.Client satisfies it.
type Session interface {
	SendMail(from string, to []string, r io.Reader) error
	Close() error
}

// Strategy is one transport in the ranked fallback chain. Viable must be
// cheap and side-effect free; it is re-evaluated on every send since the
// configuration can legitimately change between invocations.
type Strategy interface {
	Name() string
	Viable(cfg *config.Config, opts Options) bool
	Send(ctx context.Context, cfg *config.Config, msg *Message) error
}

// Selector walks a fixed-priority list of transport strategies and hands the
// message to the first viable one.
type Selector struct {
	strategies []Strategy
	log        zerolog.Logger
}

// NewSelector builds the default chain: ISP relay, OAuth2 Gmail,
// credentialed SMTP, local subprocess.
func NewSelector(store token.Store, log zerolog.Logger) *Selector {
	return &Selector{
		strategies: []Strategy{
			NewRelayStrategy(log),
			NewGmailStrategy(store, log),
			NewSMTPStrategy(log),
			NewSubprocessStrategy(log),
		},
		log: log,
	}
}

// NewSelectorWithStrategies builds a selector over an explicit chain.
func NewSelectorWithStrategies(log zerolog.Logger, strategies ...Strategy) *Selector {
	return &Selector{strategies: strategies, log: log}
}

// Send picks the first viable strategy and delivers the message through it.
// A failure of the chosen strategy is the failure of the send; there is no
// cascading retry through lower-ranked strategies.
func (s *Selector) Send(ctx context.Context, cfg *config.Config, msg *Message, opts Options) (*Result, error) {
	if msg.To == "" {
		return nil, errs.ErrNoRecipient
	}

	m := *msg
	if opts.Test {
		m.Subject = TestSubject
		m.Text = TestBody
		m.HTML = ""
		s.log.Info().Msg("Preparing to send a test email.")
	}

	for _, strat := range s.strategies {
		if !strat.Viable(cfg, opts) {
			continue
		}

		// Forcing the relay silently drops a configured OAuth2 transport;
		// the relay may reject mail that needs its own authentication.
		if opts.ForceRelay && strat.Name() == StrategyRelay && cfg.OAuth2.Enabled() {
			s.log.Warn().Msg("Forcing unauthenticated ISP relay although OAuth2 is configured; the relay may reject this message.")
		}

		if err := strat.Send(ctx, cfg, &m); err != nil {
			// The error detail belongs in the message: the flat-file sink
			// only sees the message string, not structured fields.
			s.log.Error().Str("strategy", strat.Name()).Msgf("Error sending email: %v", err)
			return nil, fmt.Errorf("%s: %w", strat.Name(), err)
		}

		s.log.Info().Str("strategy", strat.Name()).Str("to", m.To).Msg("Email sent.")
		return &Result{Strategy: strat.Name()}, nil
	}

	return nil, errs.ErrNoViableTransport
}

// deliver assembles the message and hands it to an authenticated session,
// closing the session afterwards.
func deliver(sess Session, cfg *config.Config, msg *Message) error {
	var buf bytes.Buffer
	if err := writeMessage(&buf, cfg, msg); err != nil {
		_ = sess.Close()
		return fmt.Errorf("failed to assemble message: %w", err)
	}

	if err := sess.SendMail(cfg.User.Sender, []string{msg.To}, &buf); err != nil {
		_ = sess.Close()
		return fmt.Errorf("failed to send message: %w", err)
	}

	return sess.Close()
}
