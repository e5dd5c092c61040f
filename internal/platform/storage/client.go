// Package storage writes card assets to Cloud Storage and issues signed
// download links for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultDownloadExpiry = 15 * time.Minute
	maxDownloadExpiry     = 7 * 24 * time.Hour
)

var (
	errNoSigner       = errors.New("storage: signer is required")
	errInvalidBucket  = errors.New("storage: bucket name is required")
	errInvalidObject  = errors.New("storage: object name is required")
	errExpiryTooLong  = errors.New("storage: expiry exceeds permitted maximum")
	errNoObjectClient = errors.New("storage: object client is not initialised")
)

// URLSigner issues V4 signed download URLs. Expiry is measured from the wall
// clock because the V4 signature embeds the signing time.
type URLSigner struct {
	signer Signer
}

// NewURLSigner requires a signer with a service account email.
func NewURLSigner(signer Signer) (*URLSigner, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	return &URLSigner{signer: signer}, nil
}

// DownloadOptions shapes the signed response.
type DownloadOptions struct {
	ExpiresIn   time.Duration
	FileName    string
	ContentType string
}

// SignedURL is a time-limited GET link.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DownloadURL signs a GET for bucket/object. A file name sets an attachment
// disposition so browsers save rather than display the file.
func (s *URLSigner) DownloadURL(ctx context.Context, bucket, object string, opts DownloadOptions) (SignedURL, error) {
	if s == nil {
		return SignedURL{}, errNoSigner
	}
	bucket, object = strings.TrimSpace(bucket), strings.TrimSpace(object)
	if bucket == "" {
		return SignedURL{}, errInvalidBucket
	}
	if object == "" {
		return SignedURL{}, errInvalidObject
	}
	expiry := opts.ExpiresIn
	if expiry <= 0 {
		expiry = defaultDownloadExpiry
	}
	if expiry > maxDownloadExpiry {
		return SignedURL{}, errExpiryTooLong
	}

	query := url.Values{}
	if opts.FileName != "" {
		query.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", opts.FileName))
	}
	if opts.ContentType != "" {
		query.Set("response-content-type", opts.ContentType)
	}
	expiresAt := time.Now().Add(expiry)
	signed, err := storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		GoogleAccessID:  s.signer.Email(),
		Method:          "GET",
		Scheme:          storage.SigningSchemeV4,
		Expires:         expiresAt,
		QueryParameters: query,
		SignBytes: func(payload []byte) ([]byte, error) {
			return s.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return SignedURL{}, fmt.Errorf("storage: sign download url: %w", err)
	}
	return SignedURL{URL: signed, ExpiresAt: expiresAt}, nil
}

// Objects reads and writes object bytes.
type Objects struct {
	client *storage.Client
}

// NewObjects wraps an existing Cloud Storage client.
func NewObjects(client *storage.Client) *Objects {
	return &Objects{client: client}
}

// Put writes data to bucket/object with the given content type.
func (o *Objects) Put(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if o == nil || o.client == nil {
		return errNoObjectClient
	}
	w := o.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=3600"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: close %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Exists reports whether bucket/object is present.
func (o *Objects) Exists(ctx context.Context, bucket, object string) (bool, error) {
	if o == nil || o.client == nil {
		return false, errNoObjectClient
	}
	_, err := o.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s/%s: %w", bucket, object, err)
	}
	return true, nil
}

// PublicURL is the unsigned https form of gs://bucket/object.
func PublicURL(bucket, object string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + (&url.URL{Path: object}).EscapedPath()
}

// ParsePublicURL is the inverse of PublicURL. ok is false for any other host.
func ParsePublicURL(raw string) (bucket, object string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != "storage.googleapis.com" {
		return "", "", false
	}
	bucket, object, ok = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	return bucket, object, ok && bucket != "" && object != ""
}
