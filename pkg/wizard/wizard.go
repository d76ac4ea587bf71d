// Package wizard implements the interactive configuration flow. It fills in
// a Config section by section: sender identity first, then each transport
// the user opts into.
package wizard

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/oakmail/courier/pkg/config"
)

// Run prompts for all configuration values, seeding each prompt with the
// current value so re-running the wizard edits the existing configuration.
func Run(cfg *config.Config) error {
	seedDefaults(cfg)

	if err := identityForm(cfg).Run(); err != nil {
		return err
	}

	useOAuth := cfg.OAuth2.Enabled()
	useISP := cfg.ISP.Enabled()
	useSMTP := cfg.SMTP.Enabled()
	useLocal := cfg.Local.Path != ""
	port := portString(cfg.SMTP.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use OAuth2 with Gmail?").
				Description("Set up a client ID and secret at https://console.developers.google.com/apis/credentials first.").
				Value(&useOAuth),
		),
		huh.NewGroup(
			huh.NewInput().Title("OAuth2 client ID").Value(&cfg.OAuth2.ClientID),
			huh.NewInput().Title("OAuth2 client secret").EchoMode(huh.EchoModePassword).Value(&cfg.OAuth2.ClientSecret),
		).WithHideFunc(func() bool { return !useOAuth }),

		huh.NewGroup(
			huh.NewConfirm().Title("Enable fallback to an ISP relay?").Value(&useISP),
		),
		huh.NewGroup(
			huh.NewInput().Title("ISP relay FQDN").Value(&cfg.ISP.Relay),
		).WithHideFunc(func() bool { return !useISP }),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable fallback to credentialed SMTP?").
				Description("Not recommended: the username and password are stored in plaintext.").
				Value(&useSMTP),
		),
		huh.NewGroup(
			huh.NewInput().Title("SMTP server").Value(&cfg.SMTP.Server),
			huh.NewInput().Title("SMTP port").Value(&port).Validate(validatePort),
			huh.NewConfirm().Title("Use STARTTLS?").Value(&cfg.SMTP.StartTLS),
			huh.NewInput().Title("Username").Value(&cfg.SMTP.Username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&cfg.SMTP.Password),
		).WithHideFunc(func() bool { return !useSMTP }),

		huh.NewGroup(
			huh.NewConfirm().Title("Enable fallback to a local mail-submission binary?").Value(&useLocal),
		),
		huh.NewGroup(
			huh.NewInput().Title("Path to the submission binary").Value(&cfg.Local.Path),
		).WithHideFunc(func() bool { return !useLocal }),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if !useOAuth {
		cfg.OAuth2 = config.OAuth2Config{}
	}
	if !useISP {
		cfg.ISP = config.ISPConfig{}
	}
	if !useSMTP {
		cfg.SMTP = config.SMTPConfig{}
	} else if p, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16); err == nil {
		cfg.SMTP.Port = uint16(p)
	}
	if !useLocal {
		cfg.Local = config.LocalConfig{}
	}

	return cfg.Validate()
}

func identityForm(cfg *config.Config) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Sender email address").Value(&cfg.User.Sender),
			huh.NewInput().Title("Sender name").Value(&cfg.User.SenderName),
			huh.NewInput().Title("Reply-to address").Value(&cfg.User.ReplyTo),
			huh.NewInput().Title("Reply-to name").Value(&cfg.User.ReplyToName),
		),
	)
}

// seedDefaults derives starting values for a blank configuration: login
// name at the local hostname for the sender, ssmtp from PATH for the
// submission binary.
func seedDefaults(cfg *config.Config) {
	if cfg.User.Sender == "" {
		name := "mail"
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		}
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}
		cfg.User.Sender = fmt.Sprintf("%s@%s", name, host)
		if cfg.User.SenderName == "" {
			cfg.User.SenderName = name
		}
	}
	if cfg.User.ReplyTo == "" {
		cfg.User.ReplyTo = cfg.User.Sender
	}
	if cfg.User.ReplyToName == "" {
		cfg.User.ReplyToName = cfg.User.SenderName
	}
	if cfg.Local.Path == "" {
		if p, err := exec.LookPath("ssmtp"); err == nil {
			cfg.Local.Path = p
		}
	}
}

func portString(p uint16) string {
	if p == 0 {
		return "587"
	}
	return strconv.Itoa(int(p))
}

func validatePort(s string) error {
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16); err != nil {
		return fmt.Errorf("must be a valid TCP port (1-65535)")
	}
	return nil
}
