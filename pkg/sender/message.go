package sender

import (
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/oakmail/courier/pkg/config"
)

// writeMessage serializes the message as a multipart/alternative document
// with a plain-text part and/or an HTML part, headers populated from the
// configuration and message parameters.
func writeMessage(w io.Writer, cfg *config.Config, msg *Message) error {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: cfg.User.SenderName, Address: cfg.User.Sender}})
	h.SetAddressList("Reply-To", []*mail.Address{{Name: cfg.User.ReplyToName, Address: cfg.User.ReplyTo}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)

	mw, err := mail.CreateInlineWriter(w, h)
	if err != nil {
		return err
	}

	if msg.Text != "" {
		if err := writeInlinePart(mw, "text/plain", msg.Text); err != nil {
			return err
		}
	}
	if msg.HTML != "" {
		if err := writeInlinePart(mw, "text/html", msg.HTML); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writeInlinePart(mw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	p, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(p, body); err != nil {
		_ = p.Close()
		return err
	}
	return p.Close()
}
