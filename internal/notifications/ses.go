package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/microcosm-cc/bluemonday"
)

// SESAPI is the subset of the SES client used for templated email.
type SESAPI interface {
	SendTemplatedEmail(ctx context.Context, params *ses.SendTemplatedEmailInput, optFns ...func(*ses.Options)) (*ses.SendTemplatedEmailOutput, error)
}

// SESMailer sends EmailMessages through an SES template.
type SESMailer struct {
	client SESAPI
	source string
	policy *bluemonday.Policy
}

// NewSESMailer builds a mailer sending as "name <email>".
func NewSESMailer(client SESAPI, senderEmail, senderName string) (*SESMailer, error) {
	if client == nil {
		return nil, errors.New("notifications: ses client is required")
	}
	if senderEmail == "" {
		return nil, errors.New("notifications: sender email is required")
	}
	source := (&mail.Address{Name: senderName, Address: senderEmail}).String()
	return &SESMailer{client: client, source: source, policy: bluemonday.UGCPolicy()}, nil
}

// SendEmail renders msg into the template data and sends it. The HTML body is
// sanitized before it leaves the process.
func (m *SESMailer) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	if msg.Template == "" {
		return "", fmt.Errorf("%w: email template is required", ErrInvalidJob)
	}
	data, err := json.Marshal(map[string]string{
		"from_name":    msg.FromName,
		"to_name":      msg.ToName,
		"message_html": m.policy.Sanitize(msg.MessageHTML),
		"reply_to":     msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("notifications: encode template data: %w", err)
	}

	input := &ses.SendTemplatedEmailInput{
		Source:       aws.String(m.source),
		Destination:  &types.Destination{ToAddresses: []string{msg.To}},
		Template:     aws.String(msg.Template),
		TemplateData: aws.String(string(data)),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := m.client.SendTemplatedEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("notifications: ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
