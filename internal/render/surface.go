package render

import (
	"errors"
	"fmt"
)

// DesignWidth and DesignHeight are the card design box every tree is authored in.
const (
	DesignWidth  = 1050.0
	DesignHeight = 600.0
)

// MaxViewportWidth is the widest card element a surface hosts.
const MaxViewportWidth = 1280.0

// ErrInvalidViewport is returned when the viewport cannot host a card.
var ErrInvalidViewport = errors.New("render: invalid viewport")

// Viewport places the card element on a page: Width is the element's CSS
// pixel width, and OffsetX/OffsetY its top-left corner in page coordinates.
type Viewport struct {
	Width   float64
	OffsetX float64
	OffsetY float64
}

// Surface mounts trees at a fixed viewport.
type Surface struct {
	viewport Viewport
}

// NewSurface validates the viewport and returns a surface.
func NewSurface(vp Viewport) (*Surface, error) {
	if vp.Width <= 0 || vp.Width > MaxViewportWidth {
		return nil, fmt.Errorf("%w: width %v", ErrInvalidViewport, vp.Width)
	}
	return &Surface{viewport: vp}, nil
}

// Viewport returns the surface viewport.
func (s *Surface) Viewport() Viewport { return s.viewport }

// Element is a mounted node with its measured box in page CSS pixels.
type Element struct {
	Node *Node
	Box  Rect
}

// Frame is a laid-out tree. All geometry queries go through it.
type Frame struct {
	root     Element
	elements []Element
	scale    float64
}

// Mount lays the tree out. The root node's own rect is ignored; it always
// fills the design box.
func (s *Surface) Mount(root *Node) (*Frame, error) {
	if root == nil {
		return nil, errors.New("render: nil root")
	}
	scale := s.viewport.Width / DesignWidth
	f := &Frame{scale: scale}
	rootBox := Rect{
		X: s.viewport.OffsetX,
		Y: s.viewport.OffsetY,
		W: s.viewport.Width,
		H: DesignHeight * scale,
	}
	f.root = Element{Node: root, Box: rootBox}
	f.elements = append(f.elements, f.root)
	for _, c := range root.Children {
		f.place(c, rootBox.X, rootBox.Y)
	}
	return f, nil
}

func (f *Frame) place(n *Node, originX, originY float64) {
	box := Rect{
		X: originX + n.Rect.X*f.scale,
		Y: originY + n.Rect.Y*f.scale,
		W: n.Rect.W * f.scale,
		H: n.Rect.H * f.scale,
	}
	f.elements = append(f.elements, Element{Node: n, Box: box})
	for _, c := range n.Children {
		f.place(c, box.X, box.Y)
	}
}

// Root returns the card element's bounding box.
func (f *Frame) Root() Rect { return f.root.Box }

// Scale returns CSS pixels per design unit.
func (f *Frame) Scale() float64 { return f.scale }

// Elements returns every mounted element in paint order.
func (f *Frame) Elements() []Element {
	return append([]Element(nil), f.elements...)
}

// Query returns the elements whose attribute key equals value.
func (f *Frame) Query(key, value string) []Element {
	var out []Element
	for _, el := range f.elements {
		if el.Node.Attr(key) == value {
			out = append(out, el)
		}
	}
	return out
}

// First returns the first element matching key=value.
func (f *Frame) First(key, value string) (Element, bool) {
	for _, el := range f.elements {
		if el.Node.Attr(key) == value {
			return el, true
		}
	}
	return Element{}, false
}

// Anchors returns every element carrying an href, in paint order.
func (f *Frame) Anchors() []Element {
	var out []Element
	for _, el := range f.elements {
		if el.Node.IsAnchor() {
			out = append(out, el)
		}
	}
	return out
}

// Relative converts a page box to coordinates relative to the card's top-left.
func (f *Frame) Relative(box Rect) Rect {
	return box.Offset(-f.root.Box.X, -f.root.Box.Y)
}
