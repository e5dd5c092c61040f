package jobs

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cardify/api/internal/notifications"
)

const maxPushBytes = 1 << 20

// ErrInvalidPush is returned for push bodies that are not Pub/Sub envelopes
// carrying a notification job.
var ErrInvalidPush = errors.New("jobs: invalid push message")

// PushEnvelope is the body Pub/Sub posts to push subscriptions.
type PushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		MessageID   string            `json:"messageId"`
		Attributes  map[string]string `json:"attributes"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePush reads a push request body into the job it carries.
func DecodePush(r *http.Request) (notifications.Job, PushEnvelope, error) {
	var env PushEnvelope
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	if err != nil {
		return notifications.Job{}, env, fmt.Errorf("%w: read body: %v", ErrInvalidPush, err)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return notifications.Job{}, env, fmt.Errorf("%w: %v", ErrInvalidPush, err)
	}
	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return notifications.Job{}, env, fmt.Errorf("%w: data: %v", ErrInvalidPush, err)
	}
	var job notifications.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return notifications.Job{}, env, fmt.Errorf("%w: job: %v", ErrInvalidPush, err)
	}
	if err := job.Validate(); err != nil {
		return notifications.Job{}, env, fmt.Errorf("%w: %v", ErrInvalidPush, err)
	}
	return job, env, nil
}
