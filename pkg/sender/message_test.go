package sender

import (
	"bytes"
	"io"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmail/courier/pkg/config"
)

func messageConfig() *config.Config {
	return &config.Config{
		User: config.UserConfig{
			Sender:      "alice@example.com",
			SenderName:  "Alice",
			ReplyTo:     "bob@example.com",
			ReplyToName: "Bob",
		},
	}
}

func TestWriteMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeMessage(&buf, messageConfig(), &Message{
		To:      "carol@example.com",
		Subject: "Hi",
		Text:    "Hello",
		HTML:    "<p>Hello</p>",
	})
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, "Hi", parsed.Header.Get("Subject"))
	require.Contains(t, parsed.Header.Get("From"), "alice@example.com")
	require.Contains(t, parsed.Header.Get("From"), "Alice")
	require.Contains(t, parsed.Header.Get("Reply-To"), "bob@example.com")
	require.Contains(t, parsed.Header.Get("To"), "carol@example.com")
	require.Contains(t, parsed.Header.Get("Content-Type"), "multipart/alternative")

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "text/plain")
	require.Contains(t, string(body), "Hello")
	require.Contains(t, string(body), "text/html")
	require.Contains(t, string(body), "<p>Hello</p>")
}

func TestWriteMessage_TextOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeMessage(&buf, messageConfig(), &Message{To: "carol@example.com", Subject: "Hi", Text: "Hello"})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "text/plain")
	require.NotContains(t, out, "text/html")
	require.Contains(t, out, "Hello")
}

func TestWriteMessage_EmptyBodyTolerated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeMessage(&buf, messageConfig(), &Message{To: "carol@example.com", Subject: "Hi"})
	require.NoError(t, err)
	require.True(t, strings.Contains(buf.String(), "Subject: Hi"))
}
