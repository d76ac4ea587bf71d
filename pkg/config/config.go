package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/oakmail/courier/pkg/errs"
	"gopkg.in/yaml.v3"
)

// TokenStoreType selects where the OAuth2 token record is persisted.
type TokenStoreType string

const (
	TokenStoreFile    TokenStoreType = "file"    // JSON file next to the config
	TokenStoreKeyring TokenStoreType = "keyring" // OS keyring via the Secret Service / Keychain
)

type Config struct {
	User   UserConfig   `yaml:"user"`
	OAuth2 OAuth2Config `yaml:"OAuth2"`
	ISP    ISPConfig    `yaml:"ISP"`
	SMTP   SMTPConfig   `yaml:"smtp"`
	Local  LocalConfig  `yaml:"local-transport"`
	Token  TokenConfig  `yaml:"token"`
}

type UserConfig struct {
	Sender      string `yaml:"sender"`
	SenderName  string `yaml:"sender-name"`
	ReplyTo     string `yaml:"reply-to"`
	ReplyToName string `yaml:"reply-to-name"`
}

type OAuth2Config struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled reports whether the OAuth2 section carries everything needed to
// talk to the token endpoint.
func (c OAuth2Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type ISPConfig struct {
	Relay string `yaml:"relay"`
}

// Enabled reports whether an ISP relay host is configured.
func (c ISPConfig) Enabled() bool {
	return c.Relay != ""
}

type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     uint16 `yaml:"port"`
	StartTLS bool   `yaml:"starttls"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether a credentialed SMTP server is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Server != "" && c.Port != 0
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type TokenConfig struct {
	Store TokenStoreType `yaml:"store"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.ErrConfigNotFound
		}
		return nil, err
	}

	return LoadConfigBytes(data)
}

// LoadConfigLax reads the configuration without validating it. The wizard
// seeds its prompts from whatever is on disk, even a file that would be
// rejected at send time, so the user can repair it rather than start over.
func LoadConfigLax(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadConfigBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration back as YAML. Credentials live in this file,
// so it is created owner-readable only.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	// Validate the sender identity
	if c.User.Sender == "" {
		return errors.New("user.sender: sender address must be defined")
	}
	if !isValidEmail(c.User.Sender) {
		return fmt.Errorf("user.sender: invalid email address '%s'", c.User.Sender)
	}
	if c.User.SenderName == "" {
		c.User.SenderName = c.User.Sender
	}
	if c.User.ReplyTo == "" {
		c.User.ReplyTo = c.User.Sender
	}
	if !isValidEmail(c.User.ReplyTo) {
		return fmt.Errorf("user.reply-to: invalid email address '%s'", c.User.ReplyTo)
	}
	if c.User.ReplyToName == "" {
		c.User.ReplyToName = c.User.SenderName
	}

	// A half-filled OAuth2 section is a misconfiguration rather than a
	// disabled one; silently skipping it would mask a typo.
	if (c.OAuth2.ClientID == "") != (c.OAuth2.ClientSecret == "") {
		return errors.New("OAuth2: client_id and client_secret must both be defined to enable OAuth2")
	}

	if c.ISP.Relay != "" && !isValidHost(c.ISP.Relay) {
		return fmt.Errorf("ISP.relay: invalid relay host '%s'", c.ISP.Relay)
	}

	if c.SMTP.Server != "" && c.SMTP.Port == 0 {
		return errors.New("smtp.port: must be a valid TCP port (1-65535) when smtp.server is defined")
	}
	if c.SMTP.Server == "" && c.SMTP.Port != 0 {
		return errors.New("smtp.server: must be defined when smtp.port is set")
	}

	switch c.Token.Store {
	case TokenStoreFile, TokenStoreKeyring:
	case "":
		c.Token.Store = TokenStoreFile
	default:
		return fmt.Errorf("token.store: invalid token store '%s', must be one of: 'file' or 'keyring'", c.Token.Store)
	}

	return nil
}
