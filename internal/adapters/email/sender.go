// Package email delivers change notices to directory administrators.
package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipients is returned for requests without any To address.
var ErrNoRecipients = errors.New("email has no recipients")

// SendRequest is one message for an external provider.
type SendRequest struct {
	To      []string
	From    string // overrides the sender's default, e.g. "Staff Directory <directory@example.org>"
	Subject string
	HTML    string
	Text    string // plain-text alternative
	ReplyTo string
	// Tags label the message for the provider's logs, e.g. {"event": "updated"}.
	Tags map[string]string
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
