package sender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oakmail/courier/pkg/config"
)

// StrategySubprocess identifies the local mail-submission binary fallback.
const StrategySubprocess = "subprocess"

// defaultSubmitBinary is looked up in PATH when local-transport.path is unset.
const defaultSubmitBinary = "ssmtp"

// SubprocessStrategy serializes the message into a raw document and feeds it
// to a local mail-submission binary (ssmtp-style) on stdin, passing the
// recipient as an argument. It is the always-viable last resort.
type SubprocessStrategy struct {
	log     zerolog.Logger
	tempDir string
}

var _ Strategy = (*SubprocessStrategy)(nil)

func NewSubprocessStrategy(log zerolog.Logger) *SubprocessStrategy {
	return &SubprocessStrategy{log: log, tempDir: os.TempDir()}
}

func (s *SubprocessStrategy) Name() string { return StrategySubprocess }

func (s *SubprocessStrategy) Viable(cfg *config.Config, opts Options) bool {
	return true
}

func (s *SubprocessStrategy) Send(ctx context.Context, cfg *config.Config, msg *Message) error {
	s.log.Info().Msg("Preparing to send email via local subprocess.")

	// A unique scratch file per invocation; concurrent sends must not race
	// on each other's content.
	path := filepath.Join(s.tempDir, "courier-"+uuid.NewString()+".email")
	if err := os.WriteFile(path, []byte(rawDocument(cfg, msg)), 0o600); err != nil {
		return fmt.Errorf("failed to write scratch email file: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			s.log.Warn().Msgf("Failed to remove scratch email file %s: %v", path, err)
		}
	}()

	bin := cfg.Local.Path
	if bin == "" {
		bin = defaultSubmitBinary
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen scratch email file: %w", err)
	}
	defer f.Close()

	// Arguments are passed as a list; nothing here goes through a shell.
	cmd := exec.CommandContext(ctx, bin, msg.To)
	cmd.Stdin = f
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mail submission binary %s failed: %w (output: %s)", bin, err, strings.TrimSpace(string(out)))
	}

	return nil
}

// rawDocument builds the fixed-header document the submission binary reads
// on stdin. The shape is deliberate: MIME-Version and Content-Type first,
// then addressing headers, a blank line, and the body.
func rawDocument(cfg *config.Config, msg *Message) string {
	body := msg.Text
	if body == "" {
		body = msg.HTML
	}

	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\n")
	b.WriteString("Content-Type: text/html\n")
	fmt.Fprintf(&b, "To: <%s>\n", msg.To)
	fmt.Fprintf(&b, "From: %q <%s>\n", cfg.User.SenderName, cfg.User.Sender)
	fmt.Fprintf(&b, "Reply-To: %q <%s>\n", cfg.User.ReplyToName, cfg.User.ReplyTo)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}
