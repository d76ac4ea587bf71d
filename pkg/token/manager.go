package token

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

const (
	// GmailScope grants full mailbox access, which is what Gmail requires
	// for SMTP submission with XOAUTH2.
	GmailScope = "https://mail.google.com/"

	// redirectOOB is the out-of-band redirect: the provider displays the
	// authorization code for the user to paste back instead of redirecting.
	redirectOOB = "urn:ietf:wg:oauth:2.0:oob"
)

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithEndpoint overrides the OAuth2 provider endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(m *Manager) {
		m.config.Endpoint = endpoint
	}
}

// WithLogger sets the logger used for token lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// Manager owns the refresh-token to access-token exchange and the persisted
// token record.
type Manager struct {
	store      Store
	config     *oauth2.Config
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// NewManager creates a token manager for the given OAuth2 client.
func NewManager(store Store, clientID, clientSecret string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("missing token store")
	}
	if clientID == "" {
		return nil, errors.New("missing OAuth2 client id")
	}
	if clientSecret == "" {
		return nil, errors.New("missing OAuth2 client secret")
	}

	m := &Manager{
		store: store,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectOOB,
			Scopes:       []string{GmailScope},
			Endpoint:     googleOAuth.Endpoint,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load reads the persisted token record. Returns errs.ErrTokenNotFound if
// OAuth2 has never been initialised.
func (m *Manager) Load() (*Record, error) {
	return m.store.Load()
}

// EnsureFresh returns the record unchanged while the access token is still
// valid. Once expired it performs a single refresh exchange, persists the
// updated record and returns it. A persistence failure is fatal: reporting
// success while the next invocation reuses a stale token would fail
// downstream at the SMTP layer instead.
func (m *Manager) EnsureFresh(ctx context.Context, rec *Record) (*Record, error) {
	if rec.Fresh(m.now()) {
		m.log.Debug().Time("expiry", rec.Expiry).Msg("Cached access token is still valid")
		return rec, nil
	}

	m.log.Info().Msg("Access token expired. Generating a new token.")

	tok, err := m.exchange(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	fresh := &Record{
		RefreshToken: rec.RefreshToken,
		AccessToken:  tok.AccessToken,
		Expiry:       tok.Expiry.Local().Truncate(time.Second),
	}
	// Providers may rotate the refresh token on refresh; keep the old one
	// when the response omits it.
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	if err := m.store.Save(fresh); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.log.Info().Time("expiry", fresh.Expiry).Msg("Token refreshed.")
	return fresh, nil
}

// Initialize runs the interactive one-time authorization flow: it prints the
// authorization URL, reads the verification code from in, exchanges it for
// the initial token pair and persists the record. This is an out-of-band
// administrative operation, not part of the send path.
func (m *Manager) Initialize(ctx context.Context, in io.Reader, out io.Writer) (*Record, error) {
	url := m.config.AuthCodeURL("", oauth2.AccessTypeOffline)
	fmt.Fprintln(out, "Visit the following URL to authorise the token:")
	fmt.Fprintln(out, url)
	fmt.Fprintln(out)
	fmt.Fprint(out, "Enter verification code: ")

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && code == "" {
		return nil, fmt.Errorf("failed to read verification code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("no verification code entered")
	}

	tok, err := m.config.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}

	rec := &Record{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		Expiry:       tok.Expiry.Local().Truncate(time.Second),
	}
	if err := m.store.Save(rec); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	m.log.Info().Time("expiry", rec.Expiry).Msg("OAuth2 tokens initialised.")
	return rec, nil
}

func (m *Manager) exchange(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	return m.config.TokenSource(m.oauthContext(ctx), tok).Token()
}

// oauthContext injects the manager's HTTP client the way the oauth2 package
// documents: via the oauth2.HTTPClient context key.
func (m *Manager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// BuildAuthString constructs the SASL XOAUTH2 payload consumed by the SMTP
// AUTH command. The control-A delimited format must match exactly for Gmail
// to accept it; base64 encoding happens at the SMTP layer.
func BuildAuthString(user, accessToken string) string {
	return fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", user, accessToken)
}
