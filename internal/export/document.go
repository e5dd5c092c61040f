package export

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/go-pdf/fpdf"
)

// JPEGQuality is used for the raster embedded in documents.
const JPEGQuality = 95

const pageImageName = "card"

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("export: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// buildDocument places the bitmap on a single landscape page and overlays
// the link rectangles.
func buildDocument(img image.Image, annotations []Link, created time.Time) ([]byte, error) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("export: encode jpeg: %w", err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(created)
	pdf.SetCreator("cardify", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(pageImageName, opts, &jpg)
	pdf.ImageOptions(pageImageName, 0, 0, PageWidth, PageHeight, false, opts, 0, "")

	for _, l := range annotations {
		pdf.LinkString(l.Rect.X, l.Rect.Y, l.Rect.W, l.Rect.H, l.URL)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("export: write pdf: %w", err)
	}
	return out.Bytes(), nil
}
