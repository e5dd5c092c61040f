package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/cardify/api/internal/platform/storage"
)

var (
	// ErrUploadInvalidInput indicates an undecodable payload.
	ErrUploadInvalidInput = errors.New("upload: invalid input")
	// ErrUploadUnsupportedType indicates an image type outside png, jpeg, webp and gif.
	ErrUploadUnsupportedType = errors.New("upload: unsupported type")
	// ErrUploadTooLarge indicates the decoded image exceeds the size limit.
	ErrUploadTooLarge = errors.New("upload: too large")
)

const maxUploadBytes = 5 << 20

var uploadExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// UploadResult locates a stored image.
type UploadResult struct {
	URL         string `json:"url"`
	Object      string `json:"object"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// UploadServiceDeps wires dependencies for the upload service.
type UploadServiceDeps struct {
	Objects      ObjectWriter
	AssetsBucket string
	IDGenerator  func() string
}

type uploadService struct {
	objects ObjectWriter
	bucket  string
	newID   func() string
}

// NewUploadService constructs an UploadService writing to the assets bucket.
func NewUploadService(deps UploadServiceDeps) (UploadService, error) {
	if deps.Objects == nil {
		return nil, errors.New("upload service: object writer is required")
	}
	bucket := strings.TrimSpace(deps.AssetsBucket)
	if bucket == "" {
		return nil, errors.New("upload service: assets bucket is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	return &uploadService{objects: deps.Objects, bucket: bucket, newID: idGen}, nil
}

// Upload decodes a base64 image, given raw or as a data URI, and stores it
// under uploads/{uid}/{id}.{ext}. The type is sniffed from the bytes.
func (s *uploadService) Upload(ctx context.Context, uid, payload string) (UploadResult, error) {
	data, err := decodeImagePayload(payload)
	if err != nil {
		return UploadResult{}, err
	}
	if len(data) > maxUploadBytes {
		return UploadResult{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, len(data), maxUploadBytes)
	}
	contentType := mimetype.Detect(data).String()
	ext, ok := uploadExtensions[contentType]
	if !ok {
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUploadUnsupportedType, contentType)
	}

	object, err := storage.UploadPath(uid, s.newID(), ext)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUploadInvalidInput, err)
	}
	if err := s.objects.Put(ctx, s.bucket, object, contentType, data); err != nil {
		return UploadResult{}, fmt.Errorf("upload: store: %w", err)
	}
	return UploadResult{
		URL:         storage.PublicURL(s.bucket, object),
		Object:      object,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

// ResolveGalleryAssets uploads inline gallery images so the viewer link
// carries short hosted URLs. Remote references are kept as they are.
func (s *uploadService) ResolveGalleryAssets(ctx context.Context, ownerID string, images []string, logo string) ([]string, string, error) {
	out := make([]string, 0, len(images))
	for _, img := range images {
		resolved, err := s.hosted(ctx, ownerID, img)
		if err != nil {
			return nil, "", err
		}
		out = append(out, resolved)
	}
	resolvedLogo, err := s.hosted(ctx, ownerID, logo)
	if err != nil {
		return nil, "", err
	}
	return out, resolvedLogo, nil
}

func (s *uploadService) hosted(ctx context.Context, uid, ref string) (string, error) {
	if !strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	res, err := s.Upload(ctx, uid, ref)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func decodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrUploadInvalidInput)
	}
	if strings.HasPrefix(payload, "data:") {
		meta, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data uri must be base64", ErrUploadInvalidInput)
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadInvalidInput, err)
	}
	return data, nil
}
