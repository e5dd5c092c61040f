package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/cardify/api/internal/qr"
)

// DefaultFactor oversamples the captured element's CSS size.
const DefaultFactor = 6.0

// MaxRasterPixels bounds the output bitmap area.
const MaxRasterPixels = 36 << 20

// ErrRasterTooLarge is returned when the requested bitmap exceeds MaxRasterPixels.
var ErrRasterTooLarge = errors.New("render: raster too large")

const lineSpacing = 1.2

// Rasterize paints a mounted frame onto a transparent bitmap. The bitmap is
// factor times the root element's CSS box. ctx is checked between nodes.
func Rasterize(ctx context.Context, f *Frame, factor float64, loader ImageLoader) (*image.RGBA, error) {
	if f == nil {
		return nil, errors.New("render: nil frame")
	}
	if factor <= 0 {
		factor = DefaultFactor
	}
	if loader == nil {
		loader = NewLoader()
	}
	root := f.Root()
	w := int(math.Round(root.W * factor))
	h := int(math.Round(root.H * factor))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, w, h)
	}
	if w*h > MaxRasterPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrRasterTooLarge, w, h)
	}

	faces, err := newFaceCache()
	if err != nil {
		return nil, err
	}
	defer faces.close()

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	p := &painter{
		ctx:    ctx,
		dc:     gg.NewContextForRGBA(canvas),
		faces:  faces,
		loader: loader,
		px:     f.Scale() * factor,
		factor: factor,
	}
	if err := p.paint(f.root.Node, Rect{W: float64(w), H: float64(h)}, 1); err != nil {
		return nil, err
	}
	return canvas, nil
}

type painter struct {
	ctx    context.Context
	dc     *gg.Context
	faces  *faceCache
	loader ImageLoader
	// px is output pixels per design unit.
	px     float64
	factor float64
}

func (p *painter) paint(n *Node, box Rect, inherited float64) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	opacity := inherited
	if n.Style.Opacity > 0 && n.Style.Opacity < 1 {
		opacity *= n.Style.Opacity
	}

	switch n.Kind {
	case KindBox:
		p.paintBox(n, box, opacity)
	case KindText:
		p.paintText(n, box, opacity)
	case KindImage:
		if err := p.paintImage(n, box); err != nil {
			return err
		}
	case KindQR:
		if err := p.paintQR(n, box); err != nil {
			return err
		}
	}

	for _, c := range n.Children {
		child := Rect{
			X: box.X + c.Rect.X*p.px,
			Y: box.Y + c.Rect.Y*p.px,
			W: c.Rect.W * p.px,
			H: c.Rect.H * p.px,
		}
		if err := p.paint(c, child, opacity); err != nil {
			return err
		}
	}
	return nil
}

func (p *painter) shapePath(s Style, box Rect) {
	switch {
	case s.Shape == ShapeCircle:
		p.dc.DrawEllipse(box.X+box.W/2, box.Y+box.H/2, box.W/2, box.H/2)
	case s.Shape == ShapeHexagon:
		p.dc.DrawRegularPolygon(6, box.X+box.W/2, box.Y+box.H/2, math.Min(box.W, box.H)/2, 0)
	case s.Shape == ShapeRounded || s.Radius > 0:
		r := s.Radius * p.px
		if r <= 0 {
			r = math.Min(box.W, box.H) * 0.15
		}
		p.dc.DrawRoundedRectangle(box.X, box.Y, box.W, box.H, r)
	default:
		p.dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	}
}

func (p *painter) paintBox(n *Node, box Rect, opacity float64) {
	if c, ok := p.colour(n.Style.Fill, opacity); ok {
		p.shapePath(n.Style, box)
		p.dc.SetColor(c)
		p.dc.Fill()
	}
	if c, ok := p.colour(n.Style.Stroke, opacity); ok && n.Style.StrokeWidth > 0 {
		p.shapePath(n.Style, box)
		p.dc.SetColor(c)
		p.dc.SetLineWidth(n.Style.StrokeWidth * p.px)
		p.dc.Stroke()
	}
}

func (p *painter) paintText(n *Node, box Rect, opacity float64) {
	if n.Text == "" {
		return
	}
	c, ok := p.colour(n.Style.Color, opacity)
	if !ok {
		c = withOpacity(color.NRGBA{A: 0xff}, opacity)
	}
	size := n.Style.FontSize
	if size <= 0 {
		size = 16
	}
	p.dc.Push()
	defer p.dc.Pop()
	p.dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	p.dc.Clip()
	p.dc.SetFontFace(p.faces.face(n.Style.Bold, size*p.px))
	p.dc.SetColor(c)
	p.dc.DrawStringWrapped(n.Text, box.X, box.Y, 0, 0, box.W, lineSpacing, ggAlign(n.Style.Align))
}

func (p *painter) paintImage(n *Node, box Rect) error {
	if n.Src == "" {
		return nil
	}
	img, err := p.loader.Load(p.ctx, n.Src)
	if err != nil {
		return err
	}
	dst, src := fitRects(img.Bounds(), box, n.Style.Fit, p.factor)
	if dst.Dx() <= 0 || dst.Dy() <= 0 {
		return nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, src, draw.Over, nil)

	p.dc.Push()
	defer p.dc.Pop()
	p.shapePath(n.Style, box)
	p.dc.Clip()
	p.dc.DrawImage(scaled, dst.Min.X, dst.Min.Y)
	return nil
}

func (p *painter) paintQR(n *Node, box Rect) error {
	if n.QR == "" {
		return nil
	}
	size := int(math.Round(math.Min(box.W, box.H)))
	if size <= 0 {
		return nil
	}
	img, err := qr.Image(n.QR, size, 0)
	if err != nil {
		return err
	}
	x := int(math.Round(box.X + (box.W-float64(size))/2))
	y := int(math.Round(box.Y + (box.H-float64(size))/2))
	p.dc.DrawImage(img, x, y)
	return nil
}

func (p *painter) colour(hex string, opacity float64) (color.Color, bool) {
	if hex == "" {
		return nil, false
	}
	c, err := ParseHex(hex)
	if err != nil {
		return nil, false
	}
	return withOpacity(c, opacity), true
}

// fitRects returns the destination rectangle on the canvas and the source
// rectangle within the image for the given fit mode.
func fitRects(bounds image.Rectangle, box Rect, fit Fit, factor float64) (image.Rectangle, image.Rectangle) {
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	if iw <= 0 || ih <= 0 || box.W <= 0 || box.H <= 0 {
		return image.Rectangle{}, bounds
	}
	switch fit {
	case FitContain:
		s := math.Min(box.W/iw, box.H/ih)
		w, h := iw*s, ih*s
		return rectAt(box.X+(box.W-w)/2, box.Y+(box.H-h)/2, w, h), bounds
	case FitFixed:
		w, h := iw*factor, ih*factor
		return rectAt(box.X+(box.W-w)/2, box.Y+(box.H-h)/2, w, h), bounds
	default:
		// cover: crop the source to the box aspect ratio, centred.
		boxAspect := box.W / box.H
		src := bounds
		if iw/ih > boxAspect {
			cw := ih * boxAspect
			x0 := bounds.Min.X + int(math.Round((iw-cw)/2))
			src = image.Rect(x0, bounds.Min.Y, x0+int(math.Round(cw)), bounds.Max.Y)
		} else {
			ch := iw / boxAspect
			y0 := bounds.Min.Y + int(math.Round((ih-ch)/2))
			src = image.Rect(bounds.Min.X, y0, bounds.Max.X, y0+int(math.Round(ch)))
		}
		return rectAt(box.X, box.Y, box.W, box.H), src
	}
}

func rectAt(x, y, w, h float64) image.Rectangle {
	x0, y0 := int(math.Round(x)), int(math.Round(y))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}

func ggAlign(a Align) gg.Align {
	switch a {
	case AlignCenter:
		return gg.AlignCenter
	case AlignRight:
		return gg.AlignRight
	}
	return gg.AlignLeft
}
