package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cardify/api/internal/contact"
	"github.com/cardify/api/internal/platform/textutil"
	"github.com/cardify/api/internal/qr"
	"github.com/cardify/api/internal/templates"
)

var (
	// ErrCardNoContactRecord indicates the card carries no contact-record fields.
	ErrCardNoContactRecord = errors.New("card: no contact record")
	// ErrCardNoQRTarget indicates the selected QR content resolves to nothing.
	ErrCardNoQRTarget = errors.New("card: no qr target")
)

const (
	defaultQRSize = 512
	maxQRSize     = 2048
)

// ContactRecord is a downloadable vCard.
type ContactRecord struct {
	FileName string
	Record   string
}

// QRImage is an encoded QR code PNG.
type QRImage struct {
	FileName string
	Value    string
	PNG      []byte
}

// CardServiceDeps wires dependencies for the card service.
type CardServiceDeps struct {
	Cards CardSource
}

type cardService struct {
	cards CardSource
}

// NewCardService constructs a CardService reading the current card from deps.Cards.
func NewCardService(deps CardServiceDeps) (CardService, error) {
	if deps.Cards == nil {
		return nil, errors.New("card service: card source is required")
	}
	return &cardService{cards: deps.Cards}, nil
}

func (s *cardService) Templates(context.Context) ([]templates.Entry, error) {
	return templates.Catalog()
}

// ContactRecord returns the vCard of the current card.
func (s *cardService) ContactRecord(ctx context.Context, uid string) (ContactRecord, error) {
	stored, err := s.cards.Current(ctx, uid)
	if err != nil {
		return ContactRecord{}, err
	}
	record := contact.Generate(stored.Card)
	if record == "" {
		return ContactRecord{}, ErrCardNoContactRecord
	}
	name := stored.Card.ContactPersonName
	if d := stored.Card.VCardDetails; d != nil && strings.TrimSpace(d.FirstName+d.LastName) != "" {
		name = d.FirstName + " " + d.LastName
	}
	return ContactRecord{
		FileName: textutil.Slug(name, '_', "contact") + ".vcf",
		Record:   record,
	}, nil
}

// QRCode encodes the current card's QR target as a PNG.
func (s *cardService) QRCode(ctx context.Context, uid string, size int) (QRImage, error) {
	switch {
	case size <= 0:
		size = defaultQRSize
	case size > maxQRSize:
		return QRImage{}, fmt.Errorf("%w: size must be at most %d", ErrEditorInvalidInput, maxQRSize)
	}
	stored, err := s.cards.Current(ctx, uid)
	if err != nil {
		return QRImage{}, err
	}
	value := qr.Resolve(stored.Card)
	if value == "" {
		return QRImage{}, ErrCardNoQRTarget
	}
	data, err := qr.EncodePNG(value, size)
	if err != nil {
		return QRImage{}, fmt.Errorf("card: encode qr: %w", err)
	}
	return QRImage{FileName: qr.DownloadFileName(stored.Card.CompanyName), Value: value, PNG: data}, nil
}
