// Package render lays out card trees on a measurable surface and rasterizes them.
//
// Trees are authored in card design units: the root always spans the
// 1050×600 design box. Mounting a tree on a Surface places it at a viewport
// size and position, which is the only source of element geometry.
package render

// Standard marker attributes.
const (
	AttrQRWrapper      = "data-qr-code-wrapper"
	AttrGalleryTrigger = "data-gallery-trigger"
	AttrRole           = "data-role"
	AttrChannel        = "data-channel"
)

// Kind identifies what a node draws.
type Kind int

const (
	KindBox Kind = iota
	KindText
	KindImage
	KindQR
)

// Align controls horizontal text placement.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Shape masks boxes and images.
type Shape string

const (
	ShapeRect    Shape = ""
	ShapeRounded Shape = "rounded"
	ShapeCircle  Shape = "circle"
	ShapeHexagon Shape = "hexagon"
)

// Fit controls how an image fills its box.
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitFixed   Fit = "fixed"
)

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether o lies entirely within r, with tolerance eps.
func (r Rect) Contains(o Rect, eps float64) bool {
	return o.X >= r.X-eps && o.Y >= r.Y-eps && o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// Offset translates r by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Scale multiplies every component independently.
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{X: r.X * sx, Y: r.Y * sy, W: r.W * sx, H: r.H * sy}
}

// Style carries the visual properties of a node. Colours are hex strings;
// an empty colour draws nothing. Opacity 0 means fully opaque.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Radius      float64
	Shape       Shape
	Opacity     float64

	Color    string
	FontSize float64
	Bold     bool
	Align    Align
	Font     string

	Fit Fit
}

// Node is one element of a card tree. Rect is relative to the parent node.
type Node struct {
	Kind     Kind
	Rect     Rect
	Style    Style
	Text     string
	Src      string
	QR       string
	Href     string
	Attrs    map[string]string
	Children []*Node
}

// Attr returns an attribute value.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute and returns n for chaining.
func (n *Node) SetAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// IsAnchor reports whether the node carries an href, inert or not.
func (n *Node) IsAnchor() bool { return n.Href != "" }

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Walk visits n and its descendants depth-first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Box builds a container node.
func Box(r Rect, s Style, children ...*Node) *Node {
	return (&Node{Kind: KindBox, Rect: r, Style: s}).Add(children...)
}

// Text builds a text node.
func Text(r Rect, text string, s Style) *Node {
	return &Node{Kind: KindText, Rect: r, Text: text, Style: s}
}

// Image builds an image node.
func Image(r Rect, src string, s Style) *Node {
	return &Node{Kind: KindImage, Rect: r, Src: src, Style: s}
}

// QRCode builds a scannable code node.
func QRCode(r Rect, value string) *Node {
	return &Node{Kind: KindQR, Rect: r, QR: value}
}

// Anchor turns n into a link element.
func Anchor(n *Node, href string) *Node {
	n.Href = href
	return n
}
