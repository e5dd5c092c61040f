package templates

import "github.com/cardify/api/internal/render"

type rect = render.Rect

func fill(r rect, colour string) *render.Node {
	return render.Box(r, render.Style{Fill: colour})
}

// panelLeft: brand panel with logo and code on the left third.
func panelLeft() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{fill(rect{W: 350, H: 600}, t.primary)}
		},
		logo:       rect{X: 100, Y: 40, W: 150, H: 150},
		company:    rect{X: 20, Y: 205, W: 310, H: 40},
		slogan:     rect{X: 20, Y: 250, W: 310, H: 30},
		brandAlign: render.AlignCenter,
		brandLight: true,
		qr:         rect{X: 100, Y: 330, W: 150, H: 150},

		name:        rect{X: 390, Y: 60, W: 620, H: 50},
		designation: rect{X: 390, Y: 115, W: 620, H: 30},
		separator:   rect{X: 390, Y: 160, W: 620, H: 3},
		address:     rect{X: 390, Y: 180, W: 620, H: 50},
		contacts:    rect{X: 390, Y: 245, W: 620, H: 120},
		icons:       rect{X: 390, Y: 470, W: 620, H: 60},
		iconAlign:   render.AlignCenter,
		iconShape:   render.ShapeCircle,
	}
}

// panelRight mirrors panelLeft.
func panelRight() layout {
	l := panelLeft()
	l.decor = func(t theme) []*render.Node {
		return []*render.Node{fill(rect{X: 700, W: 350, H: 600}, t.primary)}
	}
	shift := func(r rect, dx float64) rect { return r.Offset(dx, 0) }
	l.logo = shift(l.logo, 700)
	l.company = shift(l.company, 700)
	l.slogan = shift(l.slogan, 700)
	l.qr = shift(l.qr, 700)
	for _, r := range []*rect{&l.name, &l.designation, &l.separator, &l.address, &l.contacts, &l.icons} {
		*r = shift(*r, -350)
	}
	l.iconAlign = render.AlignLeft
	return l
}

// topBanner: coloured banner carrying the brand, details below, code on the right.
func topBanner() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{fill(rect{W: 1050, H: 200}, t.primary)}
		},
		logo:       rect{X: 40, Y: 25, W: 150, H: 150},
		company:    rect{X: 210, Y: 50, W: 600, H: 50},
		slogan:     rect{X: 210, Y: 110, W: 600, H: 30},
		brandLight: true,

		name:        rect{X: 40, Y: 230, W: 640, H: 50},
		designation: rect{X: 40, Y: 285, W: 640, H: 30},
		address:     rect{X: 40, Y: 325, W: 640, H: 50},
		contacts:    rect{X: 40, Y: 385, W: 640, H: 110},
		icons:       rect{X: 40, Y: 510, W: 640, H: 60},
		iconShape:   render.ShapeCircle,
		qr:          rect{X: 820, Y: 260, W: 180, H: 180},
	}
}

// headerRule: logo and company in a header separated by a rule.
func headerRule() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{fill(rect{X: 40, Y: 170, W: 970, H: 2}, t.accent)}
		},
		logo:    rect{X: 40, Y: 40, W: 110, H: 110},
		company: rect{X: 170, Y: 55, W: 600, H: 45},
		slogan:  rect{X: 170, Y: 105, W: 600, H: 30},

		name:        rect{X: 40, Y: 200, W: 620, H: 45},
		designation: rect{X: 40, Y: 248, W: 620, H: 28},
		address:     rect{X: 40, Y: 285, W: 620, H: 50},
		contacts:    rect{X: 40, Y: 345, W: 620, H: 110},
		icons:       rect{X: 40, Y: 500, W: 620, H: 60},
		iconShape:   render.ShapeRounded,
		qr:          rect{X: 800, Y: 230, W: 180, H: 180},
	}
}

// framed: an accent frame with icons and code in the lower right.
func framed() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{render.Box(rect{X: 20, Y: 20, W: 1010, H: 560},
				render.Style{Stroke: t.accent, StrokeWidth: 3, Radius: 16})}
		},
		logo:    rect{X: 60, Y: 60, W: 140, H: 140},
		company: rect{X: 220, Y: 70, W: 500, H: 45},
		slogan:  rect{X: 220, Y: 120, W: 500, H: 30},

		name:        rect{X: 60, Y: 230, W: 500, H: 45},
		designation: rect{X: 60, Y: 278, W: 500, H: 28},
		address:     rect{X: 60, Y: 315, W: 500, H: 50},
		contacts:    rect{X: 60, Y: 375, W: 500, H: 110},
		icons:       rect{X: 500, Y: 470, W: 350, H: 60},
		iconAlign:   render.AlignRight,
		iconShape:   render.ShapeRect,
		qr:          rect{X: 870, Y: 400, W: 140, H: 140},
	}
}

// centredOverlay: everything centred over a darkened primary field.
func centredOverlay() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{
				fill(rect{W: 1050, H: 600}, t.primary),
				render.Box(rect{W: 1050, H: 600}, render.Style{Fill: colourOverlay, Opacity: 0.6}),
			}
		},
		logo:       rect{X: 465, Y: 30, W: 120, H: 120},
		company:    rect{X: 175, Y: 160, W: 700, H: 45},
		slogan:     rect{X: 175, Y: 205, W: 700, H: 28},
		brandAlign: render.AlignCenter,
		brandLight: true,

		name:        rect{X: 175, Y: 245, W: 700, H: 40},
		designation: rect{X: 175, Y: 287, W: 700, H: 28},
		address:     rect{X: 175, Y: 318, W: 700, H: 30},
		contacts:    rect{X: 175, Y: 352, W: 700, H: 72},
		infoAlign:   render.AlignCenter,
		infoLight:   true,
		icons:       rect{X: 175, Y: 430, W: 700, H: 50},
		iconAlign:   render.AlignCenter,
		iconShape:   render.ShapeCircle,
		iconLight:   true,
		qr:          rect{X: 470, Y: 485, W: 110, H: 110},
	}
}

// stripes: thin primary and accent bands, code on the left, logo on the right.
func stripes() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{
				fill(rect{W: 1050, H: 24}, t.primary),
				fill(rect{Y: 576, W: 1050, H: 24}, t.accent),
			}
		},
		qr:      rect{X: 60, Y: 200, W: 200, H: 200},
		logo:    rect{X: 850, Y: 50, W: 150, H: 150},
		company: rect{X: 300, Y: 60, W: 520, H: 45},
		slogan:  rect{X: 300, Y: 110, W: 520, H: 30},

		name:        rect{X: 300, Y: 190, W: 520, H: 45},
		designation: rect{X: 300, Y: 238, W: 520, H: 28},
		separator:   rect{X: 300, Y: 275, W: 520, H: 3},
		address:     rect{X: 300, Y: 290, W: 520, H: 50},
		contacts:    rect{X: 300, Y: 350, W: 520, H: 110},
		icons:       rect{X: 300, Y: 480, W: 700, H: 60},
		iconShape:   render.ShapeCircle,
	}
}

// splitHalves: brand across the top half, details and code across the bottom.
func splitHalves() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			return []*render.Node{fill(rect{W: 1050, H: 300}, t.primary)}
		},
		logo:       rect{X: 60, Y: 60, W: 180, H: 180},
		company:    rect{X: 270, Y: 90, W: 720, H: 50},
		slogan:     rect{X: 270, Y: 150, W: 720, H: 30},
		brandLight: true,

		name:        rect{X: 60, Y: 320, W: 600, H: 45},
		designation: rect{X: 60, Y: 368, W: 600, H: 28},
		address:     rect{X: 60, Y: 402, W: 600, H: 40},
		contacts:    rect{X: 60, Y: 445, W: 600, H: 84},
		icons:       rect{X: 60, Y: 535, W: 600, H: 50},
		iconShape:   render.ShapeRounded,
		qr:          rect{X: 820, Y: 330, W: 170, H: 170},
	}
}

// gradientSide: primary-to-accent field with details left and brand right.
func gradientSide() layout {
	return layout{
		decor: func(t theme) []*render.Node {
			nodes := make([]*render.Node, 0, 6)
			const bands = 6
			for i := 0; i < bands; i++ {
				w := 1050.0 / bands
				bw := w
				if i < bands-1 {
					bw++
				}
				nodes = append(nodes, fill(rect{X: float64(i) * w, W: bw, H: 600},
					render.Mix(t.primary, t.accent, float64(i)/float64(bands-1))))
			}
			return nodes
		},
		name:        rect{X: 50, Y: 60, W: 600, H: 50},
		designation: rect{X: 50, Y: 115, W: 600, H: 30},
		address:     rect{X: 50, Y: 160, W: 600, H: 50},
		contacts:    rect{X: 50, Y: 220, W: 600, H: 110},
		infoLight:   true,

		logo:       rect{X: 830, Y: 50, W: 170, H: 170},
		company:    rect{X: 650, Y: 235, W: 350, H: 40},
		slogan:     rect{X: 650, Y: 280, W: 350, H: 30},
		brandAlign: render.AlignRight,
		brandLight: true,

		icons:     rect{X: 50, Y: 470, W: 600, H: 60},
		iconShape: render.ShapeCircle,
		iconLight: true,
		qr:        rect{X: 850, Y: 380, W: 150, H: 150},
	}
}
