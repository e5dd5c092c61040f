package render

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Every family maps onto the bundled Go fonts; only weight is honoured.
type fontSet struct {
	regular *truetype.Font
	bold    *truetype.Font
}

var (
	fontsOnce sync.Once
	fonts     fontSet
	fontsErr  error
)

func loadFonts() (fontSet, error) {
	fontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("render: parse regular font: %w", err)
			return
		}
		bold, err := truetype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("render: parse bold font: %w", err)
			return
		}
		fonts = fontSet{regular: regular, bold: bold}
	})
	return fonts, fontsErr
}

type faceKey struct {
	bold bool
	size float64
}

// faceCache holds faces for one rasterization; faces are not safe for
// concurrent use so each pass owns its cache.
type faceCache struct {
	set   fontSet
	faces map[faceKey]font.Face
}

func newFaceCache() (*faceCache, error) {
	set, err := loadFonts()
	if err != nil {
		return nil, err
	}
	return &faceCache{set: set, faces: make(map[faceKey]font.Face)}, nil
}

func (c *faceCache) face(bold bool, sizePx float64) font.Face {
	key := faceKey{bold: bold, size: sizePx}
	if f, ok := c.faces[key]; ok {
		return f
	}
	ttf := c.set.regular
	if bold {
		ttf = c.set.bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
	c.faces[key] = f
	return f
}

func (c *faceCache) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}
