package email

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	now    func() time.Time
}

// NewResendSender creates a sender for apiKey using from when a request has no From.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from, now: time.Now}
}

// request maps req onto the Resend API, filling the default sender.
func (s *ResendSender) request(req SendRequest) *resend.SendEmailRequest {
	params := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	}
	if params.From == "" {
		params.From = s.from
	}
	names := make([]string, 0, len(req.Tags))
	for name := range req.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params.Tags = append(params.Tags, resend.Tag{Name: name, Value: req.Tags[name]})
	}
	return params
}

// Send delivers req through Resend.
// PRE: req has at least one recipient
// POST: Returns the Resend message id once the API accepted the message
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.request(req))
	if err != nil {
		slog.Error("resend_send_failed", "error", err.Error(), "recipients", len(req.To), "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send: %w", err)
	}
	slog.Info("resend_sent", "message_id", sent.Id, "recipients", len(req.To), "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: s.now()}, nil
}
