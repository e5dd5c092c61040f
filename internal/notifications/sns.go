package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used for direct SMS.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSTexter sends TextMessages as transactional SMS.
type SNSTexter struct {
	client   SNSAPI
	senderID string
}

// NewSNSTexter wraps an SNS client. senderID is optional.
func NewSNSTexter(client SNSAPI, senderID string) (*SNSTexter, error) {
	if client == nil {
		return nil, errors.New("notifications: sns client is required")
	}
	return &SNSTexter{client: client, senderID: senderID}, nil
}

// SendText publishes msg to its phone number.
func (t *SNSTexter) SendText(ctx context.Context, msg TextMessage) (string, error) {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if t.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(t.senderID)}
	}
	out, err := t.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(msg.PhoneNumber),
		Message:           aws.String(msg.Message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("notifications: sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
