// Package notifications delivers transactional email and text messages,
// either directly or through a queue drained by the notifier worker.
package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/links"
)

// Kind selects the delivery channel of a Job.
type Kind string

const (
	KindEmail Kind = "email"
	KindText  Kind = "text"
)

// ErrInvalidJob is returned for jobs missing their channel payload.
var ErrInvalidJob = errors.New("notifications: invalid job")

const (
	defaultFromName = "Cardify User"
	defaultToName   = "Cardify Admin"
	defaultReplyTo  = "no-reply@cardify.app"
	noComment       = "No comment provided."
)

// Job is one queued or direct notification.
type Job struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Topic     string        `json:"topic,omitempty"`
	Email     *EmailMessage `json:"email,omitempty"`
	Text      *TextMessage  `json:"text,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Validate checks that the payload matching Kind is present.
func (j Job) Validate() error {
	switch j.Kind {
	case KindEmail:
		if j.Email == nil || strings.TrimSpace(j.Email.To) == "" {
			return fmt.Errorf("%w: email recipient is required", ErrInvalidJob)
		}
	case KindText:
		if j.Text == nil || strings.TrimSpace(j.Text.PhoneNumber) == "" {
			return fmt.Errorf("%w: phone number is required", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidJob, j.Kind)
	}
	return nil
}

// EmailMessage is a templated email. The template receives from_name,
// to_name, message_html and reply_to.
type EmailMessage struct {
	Template    string `json:"template"`
	To          string `json:"to"`
	FromName    string `json:"fromName"`
	ToName      string `json:"toName"`
	MessageHTML string `json:"messageHtml"`
	ReplyTo     string `json:"replyTo"`
}

// TextMessage is a transactional SMS.
type TextMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// Recipients names where feedback notifications go.
type Recipients struct {
	EmailTemplate string
	AdminEmail    string
	AdminPhone    string
}

// FeedbackJobs fans one feedback submission out into the admin email, the
// admin text alert and the thank-you text to the card owner. Jobs whose
// recipient is not configured are skipped.
func FeedbackJobs(fb domain.Feedback, card domain.CardData, to Recipients, now time.Time) ([]Job, error) {
	fromName := strings.TrimSpace(fb.Name)
	if fromName == "" {
		fromName = defaultFromName
	}
	comment := strings.TrimSpace(fb.Comment)

	var jobs []Job
	if to.EmailTemplate != "" && to.AdminEmail != "" {
		body, err := feedbackHTML(fromName, fb.Rating.Label(), comment)
		if err != nil {
			return nil, err
		}
		replyTo := strings.TrimSpace(fb.Email)
		if replyTo == "" {
			replyTo = defaultReplyTo
		}
		jobs = append(jobs, Job{
			ID:    fb.ID + "-email",
			Kind:  KindEmail,
			Topic: "feedback.admin_email",
			Email: &EmailMessage{
				Template:    to.EmailTemplate,
				To:          to.AdminEmail,
				FromName:    fromName,
				ToName:      defaultToName,
				MessageHTML: body,
				ReplyTo:     replyTo,
			},
			CreatedAt: now,
		})
	}

	if to.AdminPhone != "" {
		if comment == "" {
			comment = noComment
		}
		msg := strings.Join([]string{
			"New Cardify Feedback!",
			"--------------------",
			"From: " + fromName,
			"Rating: " + fb.Rating.Label(),
			"Comment: " + comment,
		}, "\n")
		jobs = append(jobs, Job{
			ID:        fb.ID + "-admin-text",
			Kind:      KindText,
			Topic:     "feedback.admin_text",
			Text:      &TextMessage{PhoneNumber: to.AdminPhone, Message: msg},
			CreatedAt: now,
		})
	}

	if phone, name := ownerPhone(card); phone != "" {
		jobs = append(jobs, Job{
			ID:    fb.ID + "-thanks",
			Kind:  KindText,
			Topic: "feedback.thank_you",
			Text: &TextMessage{
				PhoneNumber: phone,
				Message:     fmt.Sprintf("Dear %s, Thank you for your valuable feedback!", name),
			},
			CreatedAt: now,
		})
	}
	return jobs, nil
}

// ownerPhone returns the first contact number in E.164 form together with
// the contact person's name, or "" when either is missing.
func ownerPhone(card domain.CardData) (string, string) {
	name := strings.TrimSpace(card.ContactPersonName)
	if name == "" || len(card.ContactDetails) == 0 {
		return "", ""
	}
	first := card.ContactDetails[0]
	digits := links.Digits(first.Phone)
	code := strings.TrimSpace(first.CountryCode)
	if digits == "" || code == "" {
		return "", ""
	}
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	return code + digits, name
}

var feedbackTemplate = template.Must(template.New("feedback").Parse(`<div>
<h1>New Feedback Received!</h1>
<h2>A user has shared their experience.</h2>
<p><strong>From:</strong> {{.From}}</p>
<p><strong>Rating:</strong> {{.Rating}}</p>
<h3>Comment:</h3>
<p>{{if .Comment}}{{.Comment}}{{else}}<em>No comment provided.</em>{{end}}</p>
<p>This feedback was sent from the Cardify app.</p>
</div>`))

func feedbackHTML(from, rating, comment string) (string, error) {
	var buf bytes.Buffer
	err := feedbackTemplate.Execute(&buf, struct {
		From, Rating, Comment string
	}{from, rating, comment})
	if err != nil {
		return "", fmt.Errorf("notifications: render feedback email: %w", err)
	}
	return buf.String(), nil
}
