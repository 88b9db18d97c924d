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

package vecfont

import (
	"math"

	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/sfnt/glyph"
)

// Face is a [Font] backed by a go-text font face.
type Face struct {
	Face *font.Face

	upem float64
}

// FromFace wraps a go-text font face.
func FromFace(face *font.Face) *Face {
	upem := float64(face.Upem())
	if upem <= 0 {
		upem = 1000
	}
	return &Face{Face: face, upem: upem}
}

// Lookup implements the [Font] interface.
func (f *Face) Lookup(r rune) glyph.ID {
	gid, ok := f.Face.NominalGlyph(r)
	if !ok || gid > math.MaxUint16 {
		return 0
	}
	return glyph.ID(gid)
}

// Outline implements the [Font] interface.
//
// Bitmap-only and SVG glyphs have no outline.
func (f *Face) Outline(gid glyph.ID) Outline {
	var data font.GlyphOutline
	switch g := f.Face.GlyphData(font.GID(gid)).(type) {
	case font.GlyphOutline:
		data = g
	case font.GlyphBitmap:
		if g.Outline == nil {
			return nil
		}
		data = *g.Outline
	case font.GlyphSVG:
		data = g.Outline
	default:
		return nil
	}

	var res Outline
	var b outlineBuilder
	for _, seg := range data.Segments {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			res = b.close(res)
			b.start = toVec(seg.Args[0])
			b.current = b.start
			b.open = true
		case ot.SegmentOpLineTo:
			b.reopen()
			end := toVec(seg.Args[0])
			res = append(res, Segment{Kind: Line, Start: b.current, End: end})
			b.current = end
		case ot.SegmentOpQuadTo:
			b.reopen()
			s := Segment{
				Kind:  Quad,
				Start: b.current,
				Ctrl:  [2]vec.Vec2{toVec(seg.Args[0])},
				End:   toVec(seg.Args[1]),
			}
			res = append(res, s)
			b.current = s.End
		case ot.SegmentOpCubeTo:
			b.reopen()
			s := Segment{
				Kind:  Cubic,
				Start: b.current,
				Ctrl:  [2]vec.Vec2{toVec(seg.Args[0]), toVec(seg.Args[1])},
				End:   toVec(seg.Args[2]),
			}
			res = append(res, s)
			b.current = s.End
		}
	}
	return b.close(res)
}

// Advance implements the [Font] interface.
func (f *Face) Advance(gid glyph.ID) float64 {
	return float64(f.Face.HorizontalAdvance(font.GID(gid)))
}

// Scale implements the [Font] interface.
func (f *Face) Scale(size float64) (h, v float64) {
	q := size / f.upem
	return q, q
}

func toVec(p ot.SegmentPoint) vec.Vec2 {
	return vec.Vec2{X: float64(p.X), Y: float64(p.Y)}
}
