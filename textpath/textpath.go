// seehuhn.de/go/watermark - tiled vector-text watermarks for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package textpath converts a line of text into PDF path operators.
//
// The glyph outlines are copied into the content stream, so that the result
// does not depend on any font resource.  All glyphs are painted by a single
// fill operation, using the non-zero winding rule.
package textpath

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/color"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/graphics/content/builder"
	"seehuhn.de/go/pdf/graphics/extgstate"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/watermark/vecfont"
)

// GStateName is the resource name of the transparency graphics state.
const GStateName pdf.Name = "GS1"

// ContourEpsilon is the distance, in design units, below which two outline
// points are considered equal.
const ContourEpsilon = 0.001

// ErrSize is returned by [Vectorize] when the point size is not positive.
var ErrSize = errors.New("point size must be positive")

// Paint describes how the text is painted.
type Paint struct {
	// Alpha is the constant opacity used for filling and stroking.
	Alpha float64

	// Fill is the fill color.
	Fill color.Color
}

// DefaultPaint is a dark gray at 10% opacity.
var DefaultPaint = Paint{
	Alpha: 0.1,
	Fill:  color.DeviceRGB{0.1, 0.1, 0.1},
}

// Drawing is a line of text, converted to a content stream.
type Drawing struct {
	// Stream draws the text.  It is a self-contained stream: the graphics
	// state is saved at the start and restored at the end.
	Stream content.Stream

	// Res holds the resources used by Stream.
	Res *content.Resources

	// Bounds is the bounding box of all path points, including control
	// points.  Bounds is zero if the text has no visible glyphs.
	Bounds rect.Rect

	// Width is the total advance width of the text.
	Width float64

	// Contours is the number of closed subpaths in the stream.
	Contours int
}

// Vectorize converts text into a sequence of PDF path operators.
//
// The text starts at (x, y) and uses the given point size.  Characters
// without an outline, like the space character, move the text position but
// do not contribute to the path.  If the text has no visible glyphs, the
// stream only sets up and restores the graphics state.
func Vectorize(f vecfont.Font, text string, x, y, size float64, p Paint) (*Drawing, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, ErrSize
	}

	gs := &extgstate.ExtGState{
		Set:         graphics.StateFillAlpha | graphics.StateStrokeAlpha,
		FillAlpha:   p.Alpha,
		StrokeAlpha: p.Alpha,
	}
	res := &content.Resources{
		ExtGState: map[pdf.Name]*extgstate.ExtGState{GStateName: gs},
	}
	b := builder.New(content.Form, res)

	b.PushGraphicsState()
	b.SetExtGState(gs)
	b.SetFillColor(p.Fill)

	h, v := f.Scale(size)
	pn := &pen{b: b, h: h, v: v, x: x, y: y}
	for _, r := range text {
		gid := f.Lookup(r)
		for _, seg := range f.Outline(gid) {
			pn.segment(seg)
		}
		pn.closeContour()
		pn.x += advance(f, gid, h)
	}
	if pn.contours > 0 {
		b.Fill()
	}
	b.PopGraphicsState()

	if err := b.Close(); err != nil {
		return nil, err
	}
	stream, err := b.Harvest()
	if err != nil {
		return nil, err
	}

	d := &Drawing{
		Stream:   stream,
		Res:      res,
		Width:    pn.x - x,
		Contours: pn.contours,
	}
	if pn.haveBounds {
		d.Bounds = pn.bounds
	}
	return d, nil
}

// MeasureWidth returns the total advance width of text at the given point
// size.  The result matches the cursor movement performed by [Vectorize].
func MeasureWidth(f vecfont.Font, text string, size float64) float64 {
	h, _ := f.Scale(size)
	var w float64
	for _, r := range text {
		w += advance(f, f.Lookup(r), h)
	}
	return w
}

func advance(f vecfont.Font, gid glyph.ID, h float64) float64 {
	return f.Advance(gid) * h
}

// pen emits the path operators for glyph outlines.
type pen struct {
	b *builder.Builder

	h, v float64 // design units to text space
	x, y float64 // origin of the current glyph

	// prev is the end point of the previous segment, in design units.  It
	// is only meaningful while open is true.
	prev vec.Vec2
	open bool

	contours int

	bounds     rect.Rect
	haveBounds bool
}

func (p *pen) segment(seg vecfont.Segment) {
	if !p.open || !near(seg.Start, p.prev) {
		p.closeContour()
		x, y := p.apply(seg.Start)
		p.b.MoveTo(x, y)
		p.open = true
	}

	switch seg.Kind {
	case vecfont.Line:
		x, y := p.apply(seg.End)
		p.b.LineTo(x, y)
	case vecfont.Quad:
		c1, c2 := Elevate(seg.Start, seg.Ctrl[0], seg.End)
		x1, y1 := p.apply(c1)
		x2, y2 := p.apply(c2)
		x3, y3 := p.apply(seg.End)
		p.b.CurveTo(x1, y1, x2, y2, x3, y3)
	case vecfont.Cubic:
		x1, y1 := p.apply(seg.Ctrl[0])
		x2, y2 := p.apply(seg.Ctrl[1])
		x3, y3 := p.apply(seg.End)
		p.b.CurveTo(x1, y1, x2, y2, x3, y3)
	}
	p.prev = seg.End
}

func (p *pen) closeContour() {
	if !p.open {
		return
	}
	p.b.ClosePath()
	p.open = false
	p.contours++
}

// apply maps a point from design units to text space and records it in the
// bounding box.
func (p *pen) apply(q vec.Vec2) (float64, float64) {
	x := p.x + q.X*p.h
	y := p.y + q.Y*p.v
	if !p.haveBounds {
		p.bounds = rect.Rect{LLx: x, LLy: y, URx: x, URy: y}
		p.haveBounds = true
	} else {
		p.bounds.Add(x, y)
	}
	return x, y
}

func near(a, b vec.Vec2) bool {
	return math.Abs(a.X-b.X) <= ContourEpsilon && math.Abs(a.Y-b.Y) <= ContourEpsilon
}

// Elevate converts the quadratic Bézier curve with control points p0, p1, p2
// into a cubic curve.  The cubic curve has end points p0 and p2, and the
// returned control points.
func Elevate(p0, p1, p2 vec.Vec2) (c1, c2 vec.Vec2) {
	c1 = p0.Add(p1.Sub(p0).Mul(2.0 / 3.0))
	c2 = p2.Add(p1.Sub(p2).Mul(2.0 / 3.0))
	return c1, c2
}
