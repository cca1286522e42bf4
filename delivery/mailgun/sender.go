// Package mailgun delivers verification codes by email through the Mailgun
// API. It is the production counterpart of authcore.LogSender.
package mailgun

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/adminkit/authcore"
)

// Sender wraps Mailgun client configuration.
type Sender struct {
	Domain string
	APIKey string
	From   string
}

// NewSender returns a Sender posting through the given Mailgun domain.
func NewSender(domain, apiKey, from string) *Sender {
	return &Sender{Domain: domain, APIKey: apiKey, From: from}
}

var _ authcore.CodeSender = (*Sender)(nil)

// SendCode emails the code to its recipient. The engine calls this
// fire-and-forget, so the timeout here is the only backpressure.
func (s *Sender) SendCode(ctx context.Context, email string, purpose authcore.Purpose, code string) error {
	client := mg.NewMailgun(s.Domain, s.APIKey)
	msg := client.NewMessage(s.From, subjectFor(purpose), bodyFor(purpose, code), email)

	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err := client.Send(c, msg)
	return err
}

func subjectFor(purpose authcore.Purpose) string {
	if purpose == authcore.PurposePasswordReset {
		return "Your password reset code"
	}
	return "Confirm your registration"
}

func bodyFor(purpose authcore.Purpose, code string) string {
	action := "complete your registration"
	if purpose == authcore.PurposePasswordReset {
		action = "reset your password"
	}
	return fmt.Sprintf("Use code %s to %s. The code expires in 10 minutes.", code, action)
}
