package sender

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog"

	"github.com/oakmail/courier/pkg/config"
	"github.com/oakmail/courier/pkg/token"
)

// StrategyOAuth2 identifies the OAuth2-authenticated Gmail transport.
const StrategyOAuth2 = "oauth2"

const (
	gmailHost = "smtp.gmail.com"
	gmailAddr = gmailHost + ":587"
)

// GmailStrategy submits mail through Gmail over STARTTLS, authenticating
// with the XOAUTH2 mechanism and a token managed by the token manager.
type GmailStrategy struct {
	store token.Store
	log   zerolog.Logger

	// Seams for tests; defaults talk to the real token endpoint and SMTP server.
	newManager func(cfg *config.Config) (*token.Manager, error)
	connect    func(authString string) (Session, error)
}

var _ Strategy = (*GmailStrategy)(nil)

func NewGmailStrategy(store token.Store, log zerolog.Logger) *GmailStrategy {
	return &GmailStrategy{
		store: store,
		log:   log,
		newManager: func(cfg *config.Config) (*token.Manager, error) {
			return token.NewManager(store, cfg.OAuth2.ClientID, cfg.OAuth2.ClientSecret, token.WithLogger(log))
		},
		connect: dialGmail,
	}
}

func (s *GmailStrategy) Name() string { return StrategyOAuth2 }

// Viable requires the OAuth2 client credentials plus an initialised token
// record; without one the send would fail rather than fall through, so an
// unconfigured OAuth2 section yields to the next strategy instead.
func (s *GmailStrategy) Viable(cfg *config.Config, opts Options) bool {
	if !cfg.OAuth2.Enabled() {
		return false
	}
	_, err := s.store.Load()
	return err == nil
}

func (s *GmailStrategy) Send(ctx context.Context, cfg *config.Config, msg *Message) error {
	mgr, err := s.newManager(cfg)
	if err != nil {
		return err
	}

	rec, err := mgr.Load()
	if err != nil {
		return err
	}
	rec, err = mgr.EnsureFresh(ctx, rec)
	if err != nil {
		return err
	}

	authString := token.BuildAuthString(cfg.User.Sender, rec.AccessToken)
	s.log.Debug().Msg("Authentication string generated.")

	sess, err := s.connect(authString)
	if err != nil {
		return err
	}
	s.log.Info().Str("server", gmailAddr).Msg("Connected to SMTP server using OAuth.")

	return deliver(sess, cfg, msg)
}

func dialGmail(authString string) (Session, error) {
	c, err := smtp.DialStartTLS(gmailAddr, &tls.Config{ServerName: gmailHost})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", gmailAddr, err)
	}
	if err := c.Auth(newXOAUTH2Client(authString)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("XOAUTH2 authentication rejected: %w", err)
	}
	return c, nil
}
