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

// Package vecfont gives access to glyph outlines and advance widths.
//
// Fonts are represented by the [Font] interface.  Two implementations are
// provided: [FromSFNT] wraps a font read by the seehuhn.de/go/sfnt package,
// and [FromFace] wraps a face from github.com/go-text/typesetting, which is
// used for font collections.  [Load] picks the right one for a file.
//
// All coordinates are in font design units, with the y-axis pointing up.
package vecfont

import (
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/sfnt/glyph"
)

// Kind describes the type of an outline segment.
type Kind uint8

// These are the supported segment kinds.
const (
	Line Kind = iota + 1
	Quad
	Cubic
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Quad:
		return "quad"
	case Cubic:
		return "cubic"
	default:
		return "invalid"
	}
}

// Segment is one piece of a glyph outline.
//
// Ctrl holds the control points of the segment: none for [Line], Ctrl[0] for
// [Quad], and both for [Cubic].
type Segment struct {
	Kind  Kind
	Start vec.Vec2
	Ctrl  [2]vec.Vec2
	End   vec.Vec2
}

// Outline is the ordered list of segments making up a glyph.
//
// Contours are not marked explicitly.  A new contour starts whenever a
// segment does not begin where the previous segment ended.  Every contour
// produced by this package ends at its starting point.
type Outline []Segment

// Font is the font-outline primitive used to convert text into paths.
type Font interface {
	// Lookup returns the glyph used to display r.  If the font has no glyph
	// for r, the notdef glyph 0 is returned.
	Lookup(r rune) glyph.ID

	// Outline returns the outline of the given glyph.  Blank glyphs, like
	// the space character, have an empty outline.
	Outline(gid glyph.ID) Outline

	// Advance returns the advance width of the glyph in design units.
	Advance(gid glyph.ID) float64

	// Scale returns the factors which map design units to text space units
	// for the given point size.
	Scale(size float64) (h, v float64)
}

// fromPath converts a path into an outline, applying M to all points.
//
// The points passed to the path callback may be overwritten by the iterator,
// so all points are copied.  Open contours are closed with a straight line.
func fromPath(p path.Path, M matrix.Matrix) Outline {
	var res Outline
	b := outlineBuilder{M: M}
	for cmd, pts := range p {
		switch cmd {
		case path.CmdMoveTo:
			res = b.close(res)
			b.start = b.apply(pts[0])
			b.current = b.start
			b.open = true
		case path.CmdLineTo:
			b.reopen()
			end := b.apply(pts[0])
			res = append(res, Segment{Kind: Line, Start: b.current, End: end})
			b.current = end
		case path.CmdQuadTo:
			b.reopen()
			seg := Segment{
				Kind:  Quad,
				Start: b.current,
				Ctrl:  [2]vec.Vec2{b.apply(pts[0])},
				End:   b.apply(pts[1]),
			}
			res = append(res, seg)
			b.current = seg.End
		case path.CmdCubeTo:
			b.reopen()
			seg := Segment{
				Kind:  Cubic,
				Start: b.current,
				Ctrl:  [2]vec.Vec2{b.apply(pts[0]), b.apply(pts[1])},
				End:   b.apply(pts[2]),
			}
			res = append(res, seg)
			b.current = seg.End
		case path.CmdClose:
			res = b.close(res)
		}
	}
	return b.close(res)
}

type outlineBuilder struct {
	M       matrix.Matrix
	start   vec.Vec2
	current vec.Vec2
	open    bool
}

func (b *outlineBuilder) apply(p vec.Vec2) vec.Vec2 {
	x, y := b.M.Apply(p.X, p.Y)
	return vec.Vec2{X: x, Y: y}
}

// reopen starts a new contour at the current point, if the previous one has
// been closed without a following MoveTo.
func (b *outlineBuilder) reopen() {
	if !b.open {
		b.start = b.current
		b.open = true
	}
}

// close ends the current contour, adding a line back to the start point if
// needed.
func (b *outlineBuilder) close(res Outline) Outline {
	if !b.open {
		return res
	}
	b.open = false
	if b.current != b.start {
		res = append(res, Segment{Kind: Line, Start: b.current, End: b.start})
	}
	b.current = b.start
	return res
}
