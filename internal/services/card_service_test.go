package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/cardify/api/internal/domain"
)

func TestCardServiceContactRecord(t *testing.T) {
	card := completeCard()
	card.VCardDetails = &domain.VCardDetails{FirstName: "Jane", LastName: "Doe", EmailBusiness: "jane@acme.io"}
	svc, err := NewCardService(CardServiceDeps{Cards: staticCards{stored: domain.StoredCard{OwnerID: "u1", Card: card}}})
	if err != nil {
		t.Fatalf("NewCardService: %v", err)
	}

	rec, err := svc.ContactRecord(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ContactRecord: %v", err)
	}
	if rec.FileName != "jane_doe.vcf" {
		t.Fatalf("unexpected file name %q", rec.FileName)
	}
	if !strings.HasPrefix(rec.Record, "BEGIN:VCARD") || !strings.Contains(rec.Record, "EMAIL;TYPE=WORK:jane@acme.io") {
		t.Fatalf("unexpected record %q", rec.Record)
	}
}

func TestCardServiceContactRecordMissing(t *testing.T) {
	svc, _ := NewCardService(CardServiceDeps{Cards: staticCards{stored: domain.StoredCard{Card: completeCard()}}})
	if _, err := svc.ContactRecord(context.Background(), "u1"); !errors.Is(err, ErrCardNoContactRecord) {
		t.Fatalf("expected ErrCardNoContactRecord, got %v", err)
	}
}

func TestCardServiceQRCode(t *testing.T) {
	card := completeCard()
	card.QRCodeContent = domain.QRContentCustom
	card.QRCodeCustomURL = "https://acme.io/menu"
	svc, _ := NewCardService(CardServiceDeps{Cards: staticCards{stored: domain.StoredCard{Card: card}}})

	img, err := svc.QRCode(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if img.Value != "https://acme.io/menu" {
		t.Fatalf("unexpected value %q", img.Value)
	}
	if img.FileName != "acme_qr.png" {
		t.Fatalf("unexpected file name %q", img.FileName)
	}
	if !bytes.HasPrefix(img.PNG, []byte("\x89PNG")) {
		t.Fatalf("expected png bytes")
	}

	if _, err := svc.QRCode(context.Background(), "u1", 4096); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid input for oversize, got %v", err)
	}
}

func TestCardServiceQRCodeWithoutTarget(t *testing.T) {
	svc, _ := NewCardService(CardServiceDeps{Cards: staticCards{stored: domain.StoredCard{Card: completeCard()}}})
	if _, err := svc.QRCode(context.Background(), "u1", 256); !errors.Is(err, ErrCardNoQRTarget) {
		t.Fatalf("expected ErrCardNoQRTarget, got %v", err)
	}
}

func TestCardServiceTemplates(t *testing.T) {
	svc, _ := NewCardService(CardServiceDeps{Cards: staticCards{}})
	entries, err := svc.Templates(context.Background())
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	if len(entries) != len(domain.TemplateIDs()) {
		t.Fatalf("expected %d templates, got %d", len(domain.TemplateIDs()), len(entries))
	}
}
