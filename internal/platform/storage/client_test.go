package storage

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeSigner struct {
	email    string
	payloads int
}

func (f *fakeSigner) Email() string { return f.email }

func (f *fakeSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	f.payloads++
	return []byte("signed"), nil
}

func TestDownloadURL(t *testing.T) {
	signer := &fakeSigner{email: "signer@cardify.iam.gserviceaccount.com"}
	before := time.Now()
	s, err := NewURLSigner(signer)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.DownloadURL(context.Background(), "exports-bucket", "exports/u1/01H/acme_visiting_card.pdf", DownloadOptions{
		ExpiresIn:   10 * time.Minute,
		FileName:    "acme_visiting_card.pdf",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	after := time.Now()
	if res.ExpiresAt.Before(before.Add(10*time.Minute)) || res.ExpiresAt.After(after.Add(10*time.Minute)) {
		t.Fatalf("unexpected expiry %s", res.ExpiresAt)
	}
	u, err := url.Parse(res.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u.Path, "exports-bucket") || !strings.HasSuffix(u.Path, "acme_visiting_card.pdf") {
		t.Fatalf("unexpected path %s", u.Path)
	}
	q := u.Query()
	// The signing time trails ExpiresAt by at most the call duration.
	if got := q.Get("X-Goog-Expires"); got != "600" && got != "599" {
		t.Fatalf("unexpected expires %q", got)
	}
	if !strings.Contains(q.Get("response-content-disposition"), "attachment") {
		t.Fatalf("missing disposition: %v", q)
	}
	if signer.payloads != 1 {
		t.Fatalf("expected one signing call, got %d", signer.payloads)
	}
}

func TestDownloadURLValidation(t *testing.T) {
	s, _ := NewURLSigner(&fakeSigner{email: "a@b"})
	if _, err := s.DownloadURL(context.Background(), "", "o", DownloadOptions{}); !errors.Is(err, errInvalidBucket) {
		t.Fatalf("expected bucket error, got %v", err)
	}
	if _, err := s.DownloadURL(context.Background(), "b", " ", DownloadOptions{}); !errors.Is(err, errInvalidObject) {
		t.Fatalf("expected object error, got %v", err)
	}
	if _, err := s.DownloadURL(context.Background(), "b", "o", DownloadOptions{ExpiresIn: 8 * 24 * time.Hour}); !errors.Is(err, errExpiryTooLong) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if _, err := NewURLSigner(&fakeSigner{}); !errors.Is(err, errNoSigner) {
		t.Fatalf("expected signer error, got %v", err)
	}
}

func TestKeySignerFromJSON(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, _ := x509.MarshalPKCS8PrivateKey(key)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	body, _ := json.Marshal(map[string]string{"client_email": "svc@p.iam.gserviceaccount.com", "private_key": string(pemKey)})

	signer, err := NewKeySignerFromJSON(body)
	if err != nil {
		t.Fatalf("NewKeySignerFromJSON: %v", err)
	}
	if signer.Email() != "svc@p.iam.gserviceaccount.com" {
		t.Fatalf("unexpected email %s", signer.Email())
	}
	sig, err := signer.SignBytes(context.Background(), []byte("payload"))
	if err != nil || len(sig) != 256 {
		t.Fatalf("unexpected signature len=%d err=%v", len(sig), err)
	}
	if _, err := NewKeySignerFromJSON([]byte(`{"client_email":"x"}`)); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	raw := PublicURL("assets", "uploads/u1/01H.png")
	if raw != "https://storage.googleapis.com/assets/uploads/u1/01H.png" {
		t.Fatalf("unexpected url %s", raw)
	}
	bucket, object, ok := ParsePublicURL(raw)
	if !ok || bucket != "assets" || object != "uploads/u1/01H.png" {
		t.Fatalf("unexpected parse %s %s %v", bucket, object, ok)
	}
	if _, _, ok := ParsePublicURL("https://cdn.example.com/a.png"); ok {
		t.Fatalf("foreign host must not parse")
	}
}
