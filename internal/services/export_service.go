package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/export"
	"github.com/cardify/api/internal/platform/storage"
	"github.com/cardify/api/internal/render"
)

// Delivery modes for an export.
const (
	DeliveryInline = "inline"
	DeliveryLink   = "link"
)

var (
	// ErrExportInvalidInput indicates an unknown format or delivery mode.
	ErrExportInvalidInput = errors.New("export: invalid input")
	// ErrExportDeliveryUnavailable indicates link delivery is not configured.
	ErrExportDeliveryUnavailable = errors.New("export: link delivery unavailable")
)

// Exporter runs the export pipeline.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (export.Result, error)
}

// ObjectWriter stores artifact bytes.
type ObjectWriter interface {
	Put(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// DownloadSigner issues time-limited download links.
type DownloadSigner interface {
	DownloadURL(ctx context.Context, bucket, object string, opts storage.DownloadOptions) (storage.SignedURL, error)
}

// ExportCommand requests one artifact for the caller's current card.
type ExportCommand struct {
	UID           string
	Format        string
	ViewportWidth float64
	Delivery      string
}

// ExportOutput carries the artifact inline, or a signed link to it.
type ExportOutput struct {
	Result   export.Result
	Delivery string
	Object   string
	Link     *SignedURL
}

// ExportServiceDeps wires dependencies for the export service.
type ExportServiceDeps struct {
	Cards         SessionSource
	Pipeline      Exporter
	Objects       ObjectWriter
	Signer        DownloadSigner
	ExportsBucket string
	LinkTTL       time.Duration
	IDGenerator   func() string
	Logger        *zap.Logger
}

type exportService struct {
	cards    SessionSource
	pipeline Exporter
	objects  ObjectWriter
	signer   DownloadSigner
	bucket   string
	linkTTL  time.Duration
	newID    func() string
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Link delivery is enabled
// only when Objects, Signer and ExportsBucket are all set.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Cards == nil {
		return nil, errors.New("export service: card source is required")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("export service: pipeline is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exportService{
		cards:    deps.Cards,
		pipeline: deps.Pipeline,
		objects:  deps.Objects,
		signer:   deps.Signer,
		bucket:   strings.TrimSpace(deps.ExportsBucket),
		linkTTL:  deps.LinkTTL,
		newID:    idGen,
		logger:   logger,
	}, nil
}

// Export captures the current card. Pipeline errors are returned unchanged
// so callers can tell in-flight, precondition and capture failures apart.
func (s *exportService) Export(ctx context.Context, cmd ExportCommand) (ExportOutput, error) {
	format, err := export.ParseFormat(cmd.Format)
	if err != nil {
		return ExportOutput{}, fmt.Errorf("%w: %v", ErrExportInvalidInput, err)
	}
	delivery := strings.ToLower(strings.TrimSpace(cmd.Delivery))
	switch delivery {
	case "":
		delivery = DeliveryInline
	case DeliveryInline:
	case DeliveryLink:
		if !s.linkEnabled() {
			return ExportOutput{}, ErrExportDeliveryUnavailable
		}
	default:
		return ExportOutput{}, fmt.Errorf("%w: delivery %q", ErrExportInvalidInput, cmd.Delivery)
	}

	sess, err := s.cards.Session(ctx, cmd.UID)
	if err != nil {
		return ExportOutput{}, err
	}
	stored, err := s.cards.Current(ctx, sess.UID())
	if err != nil {
		return ExportOutput{}, err
	}
	res, err := s.pipeline.Export(ctx, export.Request{
		Session:  sess,
		Card:     stored.Card,
		Format:   format,
		Viewport: render.Viewport{Width: cmd.ViewportWidth},
	})
	if err != nil {
		return ExportOutput{}, err
	}

	out := ExportOutput{Result: res, Delivery: delivery}
	if delivery == DeliveryInline {
		return out, nil
	}

	object, err := storage.ExportPath(stored.OwnerID, s.newID(), res.FileName)
	if err != nil {
		return ExportOutput{}, err
	}
	if err := s.objects.Put(ctx, s.bucket, object, res.ContentType, res.Data); err != nil {
		return ExportOutput{}, fmt.Errorf("export: store artifact: %w", err)
	}
	link, err := s.signer.DownloadURL(ctx, s.bucket, object, storage.DownloadOptions{
		ExpiresIn:   s.linkTTL,
		FileName:    res.FileName,
		ContentType: res.ContentType,
	})
	if err != nil {
		return ExportOutput{}, fmt.Errorf("export: sign link: %w", err)
	}
	s.logger.Info("export stored",
		zap.String("uid", stored.OwnerID),
		zap.String("object", object),
		zap.Int("bytes", len(res.Data)))

	out.Object = object
	out.Link = &link
	out.Result.Data = nil
	return out, nil
}

func (s *exportService) linkEnabled() bool {
	return s.objects != nil && s.signer != nil && s.bucket != ""
}
