package sender

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

// xoauth2Client implements the XOAUTH2 SASL mechanism, which go-sasl does
// not ship (it only carries the standardised OAUTHBEARER variant). Gmail
// expects XOAUTH2 for SMTP submission.
type xoauth2Client struct {
	authString string
	done       bool
}

var _ sasl.Client = (*xoauth2Client)(nil)

// newXOAUTH2Client wraps a prebuilt control-A delimited authentication
// payload. Base64 encoding is handled by the SMTP AUTH layer.
func newXOAUTH2Client(authString string) sasl.Client {
	return &xoauth2Client{authString: authString}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	return "XOAUTH2", []byte(c.authString), nil
}

func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	// On rejection the server sends a base64 JSON status as a challenge.
	// Replying with an empty response makes it close the exchange with its
	// final error code.
	if c.done {
		return nil, fmt.Errorf("unexpected server challenge: %s", challenge)
	}
	c.done = true
	return []byte{}, nil
}
