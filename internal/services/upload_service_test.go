package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newUploads(t *testing.T, objects *memoryObjects) UploadService {
	t.Helper()
	svc, err := NewUploadService(UploadServiceDeps{Objects: objects, AssetsBucket: "assets", IDGenerator: func() string { return "img1" }})
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	return svc
}

func TestUploadStoresDataURI(t *testing.T) {
	objects := newMemoryObjects()
	svc := newUploads(t, objects)
	data := pngBytes(t)

	res, err := svc.Upload(context.Background(), "u1", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Object != "uploads/u1/img1.png" || res.ContentType != "image/png" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasSuffix(res.URL, "/assets/uploads/u1/img1.png") {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if !bytes.Equal(objects.objects["assets/uploads/u1/img1.png"], data) {
		t.Fatalf("stored bytes differ")
	}
}

func TestUploadAcceptsRawBase64(t *testing.T) {
	svc := newUploads(t, newMemoryObjects())
	if _, err := svc.Upload(context.Background(), "u1", base64.StdEncoding.EncodeToString(pngBytes(t))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUploadRejectsBadPayloads(t *testing.T) {
	svc := newUploads(t, newMemoryObjects())
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "u1", ""); !errors.Is(err, ErrUploadInvalidInput) {
		t.Fatalf("expected invalid input for empty payload, got %v", err)
	}
	if _, err := svc.Upload(ctx, "u1", "data:image/png,raw"); !errors.Is(err, ErrUploadInvalidInput) {
		t.Fatalf("expected invalid input for non-base64 data uri, got %v", err)
	}
	if _, err := svc.Upload(ctx, "u1", "!!!"); !errors.Is(err, ErrUploadInvalidInput) {
		t.Fatalf("expected invalid input for garbage, got %v", err)
	}
	text := base64.StdEncoding.EncodeToString([]byte("hello, plain text"))
	if _, err := svc.Upload(ctx, "u1", text); !errors.Is(err, ErrUploadUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
	if _, err := svc.Upload(ctx, "../etc", base64.StdEncoding.EncodeToString(pngBytes(t))); !errors.Is(err, ErrUploadInvalidInput) {
		t.Fatalf("expected invalid input for bad uid, got %v", err)
	}
}

func TestUploadResolveGalleryAssets(t *testing.T) {
	svc := newUploads(t, newMemoryObjects())
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	images, logo, err := svc.ResolveGalleryAssets(context.Background(), "u1", []string{"https://cdn.example/a.jpg", inline}, inline)
	if err != nil {
		t.Fatalf("ResolveGalleryAssets: %v", err)
	}
	if images[0] != "https://cdn.example/a.jpg" {
		t.Fatalf("remote image should be kept, got %q", images[0])
	}
	if strings.HasPrefix(images[1], "data:") || strings.HasPrefix(logo, "data:") {
		t.Fatalf("inline assets should be hosted, got %q and %q", images[1], logo)
	}
}
