// Package export captures rendered cards and produces PNG and PDF artifacts.
package export

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/contact"
	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/gallery"
	"github.com/cardify/api/internal/links"
	"github.com/cardify/api/internal/qr"
	"github.com/cardify/api/internal/render"
	"github.com/cardify/api/internal/session"
	"github.com/cardify/api/internal/templates"
)

const (
	defaultCaptureTimeout = 30 * time.Second
	defaultLockTTL        = 2 * time.Minute
	lockKeyPrefix         = "export:"
)

// Renderer lays out a card for capture.
type Renderer func(card domain.CardData, contactRecord, qrValue string, mode templates.ExportMode) *render.Node

// Locker provides cross-process single flight. Acquire reports false when
// another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// GalleryAssetResolver may rewrite uploaded gallery references (for example
// inline data payloads) into short hosted URLs before the viewer link is built.
type GalleryAssetResolver interface {
	ResolveGalleryAssets(ctx context.Context, ownerID string, images []string, logo string) ([]string, string, error)
}

// Request describes one export.
type Request struct {
	Session  *session.Session
	Card     domain.CardData
	Format   Format
	Viewport render.Viewport
}

// Result is a produced artifact.
type Result struct {
	FileName       string
	ContentType    string
	Data           []byte
	Links          []Link
	PixelWidth     int
	PixelHeight    int
	FeedbackPrompt bool
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRenderer overrides the template renderer.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithImageLoader sets the loader used while capturing images.
func WithImageLoader(l render.ImageLoader) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.loader = l
		}
	}
}

// WithFactor sets the supersampling factor.
func WithFactor(f float64) Option {
	return func(p *Pipeline) {
		if f > 0 {
			p.factor = f
		}
	}
}

// WithCaptureTimeout bounds the rasterization step.
func WithCaptureTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.captureTimeout = d
		}
	}
}

// WithLocker adds distributed single flight.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.locker = l
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithClock fixes the document creation timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithGalleryOrigin sets the origin prefixed to viewer links.
func WithGalleryOrigin(origin string) Option {
	return func(p *Pipeline) {
		p.galleryOrigin = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
}

// WithGalleryAssets installs a GalleryAssetResolver.
func WithGalleryAssets(r GalleryAssetResolver) Option {
	return func(p *Pipeline) {
		p.assets = r
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline runs exports. At most one export per owner runs at a time.
type Pipeline struct {
	renderer       Renderer
	loader         render.ImageLoader
	factor         float64
	captureTimeout time.Duration
	locker         Locker
	lockTTL        time.Duration
	clock          func() time.Time
	galleryOrigin  string
	assets         GalleryAssetResolver
	metrics        *Metrics
	logger         *zap.Logger
	tracer         trace.Tracer

	mu     sync.Mutex
	states map[string]State
}

// NewPipeline constructs a pipeline with the default renderer and loader.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer:       templates.Render,
		factor:         render.DefaultFactor,
		captureTimeout: defaultCaptureTimeout,
		lockTTL:        defaultLockTTL,
		clock:          time.Now,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer("github.com/cardify/api/internal/export"),
		states:         make(map[string]State),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.loader == nil {
		p.loader = render.NewLoader(render.WithOrigin(p.galleryOrigin))
	}
	return p
}

// State returns the owner's current pipeline state.
func (p *Pipeline) State(ownerID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[ownerID]
}

// Export captures and produces one artifact. The pipeline returns to idle
// whatever the outcome; failures are never retried.
func (p *Pipeline) Export(ctx context.Context, req Request) (Result, error) {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return Result{}, err
	}
	if err := checkPrecondition(req.Card); err != nil {
		p.metrics.observeOutcome(format, outcomeInvalid)
		return Result{}, err
	}
	if req.Session == nil {
		return Result{}, ErrNoSession
	}
	owner := req.Session.UID()

	if !p.begin(owner) {
		p.metrics.observeOutcome(format, outcomeInFlight)
		return Result{}, ErrExportInFlight
	}
	defer p.finish(owner)

	if p.locker != nil {
		release, ok, err := p.locker.Acquire(ctx, lockKeyPrefix+owner, p.lockTTL)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			p.metrics.observeOutcome(format, outcomeInFlight)
			return Result{}, ErrExportInFlight
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("export: release lock", zap.String("owner", owner), zap.Error(err))
			}
		}()
	}

	ctx, span := p.tracer.Start(ctx, "export", trace.WithAttributes(
		attribute.String("export.format", string(format)),
		attribute.String("export.template", req.Card.Template),
	))
	defer span.End()

	res, outcome, err := p.run(ctx, owner, format, req)
	p.metrics.observeOutcome(format, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		p.logger.Warn("export failed",
			zap.String("owner", owner),
			zap.String("format", string(format)),
			zap.String("outcome", outcome),
			zap.Error(err))
		return Result{}, err
	}
	p.metrics.observeSize(format, len(res.Data))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, owner string, format Format, req Request) (Result, string, error) {
	card := req.Card.Clone()
	record := contact.Generate(card)
	qrValue := qr.ResolveWithRecord(card, record)

	viewport := req.Viewport
	if viewport.Width <= 0 {
		viewport.Width = render.DesignWidth
	}
	surface, err := render.NewSurface(viewport)
	if err != nil {
		return Result{}, outcomeInvalid, &ValidationError{Field: "viewportWidth", Message: err.Error()}
	}

	// Geometry is read only from the mounted frame.
	frame, bitmap, err := p.capture(ctx, surface, format, card, record, qrValue)
	if errors.Is(err, render.ErrRasterTooLarge) || errors.Is(err, render.ErrInvalidViewport) {
		return Result{}, outcomeInvalid, &ValidationError{Field: "viewportWidth", Message: err.Error()}
	}
	if err != nil {
		return Result{}, outcomeCapture, &CaptureError{Err: err}
	}

	started := time.Now()
	res := Result{
		FileName:       FileName(card.CompanyName, format),
		ContentType:    format.ContentType(),
		PixelWidth:     bitmap.Bounds().Dx(),
		PixelHeight:    bitmap.Bounds().Dy(),
		FeedbackPrompt: true,
	}
	_, span := p.tracer.Start(ctx, "export.produce")
	defer span.End()

	switch format {
	case FormatPNG:
		p.setState(owner, StateProducingRaster)
		res.Data, err = encodePNG(bitmap)
	case FormatPDF:
		p.setState(owner, StateProducingDocument)
		res.Links = collectLinks(frame, linkInputs{
			card:          card,
			contactRecord: record,
			contactURI:    contact.DataURI(record),
			galleryURL:    p.galleryTarget(ctx, owner, card),
		})
		res.Data, err = buildDocument(bitmap, res.Links, p.clock())
	}
	p.metrics.observePhase(format, "produce", started)
	if err != nil {
		span.RecordError(err)
		return Result{}, outcomeProduction, err
	}
	return res, outcomeSuccess, nil
}

func (p *Pipeline) capture(ctx context.Context, surface *render.Surface, format Format, card domain.CardData, record, qrValue string) (*render.Frame, *image.RGBA, error) {
	started := time.Now()
	defer p.metrics.observePhase(format, "capture", started)

	ctx, span := p.tracer.Start(ctx, "export.capture")
	defer span.End()

	root := p.renderer(card, record, qrValue, format.mode())
	frame, err := surface.Mount(root)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.captureTimeout)
	defer cancel()
	bitmap, err := render.Rasterize(ctx, frame, p.factor, p.loader)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.Int("export.pixel_width", bitmap.Bounds().Dx()),
		attribute.Int("export.pixel_height", bitmap.Bounds().Dy()),
	)
	return frame, bitmap, nil
}

// galleryTarget returns the viewer link for uploaded images, the normalised
// URL for a link-only gallery, or "".
func (p *Pipeline) galleryTarget(ctx context.Context, owner string, card domain.CardData) string {
	src := links.Gallery(card.Links)
	if src.URL != "" || len(src.Images) == 0 {
		return src.URL
	}
	images, logo := src.Images, card.CompanyLogo
	if p.assets != nil {
		resolvedImages, resolvedLogo, err := p.assets.ResolveGalleryAssets(ctx, owner, images, logo)
		if err != nil {
			p.logger.Warn("export: resolve gallery assets", zap.String("owner", owner), zap.Error(err))
		} else {
			images, logo = resolvedImages, resolvedLogo
		}
	}
	target, err := gallery.BuildURL(p.galleryOrigin, images, logo)
	if err != nil {
		p.logger.Warn("export: build gallery url", zap.String("owner", owner), zap.Error(err))
		return ""
	}
	return target
}

func checkPrecondition(card domain.CardData) error {
	if strings.TrimSpace(card.CompanyName) == "" && strings.TrimSpace(card.ContactPersonName) == "" {
		return &ValidationError{Field: "companyName", Message: "Please fill in at least the company name or your name."}
	}
	return nil
}

func (p *Pipeline) begin(owner string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states[owner] != StateIdle {
		return false
	}
	p.states[owner] = StateCapturing
	return true
}

func (p *Pipeline) setState(owner string, s State) {
	p.mu.Lock()
	p.states[owner] = s
	p.mu.Unlock()
}

func (p *Pipeline) finish(owner string) {
	p.mu.Lock()
	delete(p.states, owner)
	p.mu.Unlock()
}

// IsCaptureError reports whether err came from the capture step.
func IsCaptureError(err error) bool {
	var ce *CaptureError
	return errors.As(err, &ce)
}
