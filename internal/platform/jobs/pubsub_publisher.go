// Package jobs carries background work over Pub/Sub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/cardify/api/internal/notifications"
)

// PubSubNotificationPublisher publishes notification jobs to a Pub/Sub topic.
type PubSubNotificationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotificationPublisher constructs a Pub/Sub backed job publisher.
func NewPubSubNotificationPublisher(topic *pubsub.Topic) (*PubSubNotificationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub notification publisher: topic is required")
	}
	return &PubSubNotificationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishNotification enqueues job on the configured topic and waits for the
// server-assigned message id.
func (p *PubSubNotificationPublisher) PublishNotification(ctx context.Context, job notifications.Job) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub notification publisher: not initialised")
	}

	data, err := p.marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal notification job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "jobId", job.ID)
	setAttr(attrs, "kind", string(job.Kind))
	setAttr(attrs, "topic", job.Topic)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish notification job: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
