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
	"errors"
	"fmt"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cff"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"
)

// SFNT is a [Font] backed by a TrueType or OpenType font.
type SFNT struct {
	Font *sfnt.Font

	cmap cmap.Subtable
	upem float64
}

// FromSFNT wraps an sfnt font.
// The font must have a usable character map.
func FromSFNT(f *sfnt.Font) (*SFNT, error) {
	if f.CMapTable == nil {
		return nil, errors.New("font has no cmap table")
	}
	sub, err := f.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", f.PostScriptName(), err)
	}
	upem := float64(f.UnitsPerEm)
	if upem <= 0 {
		upem = 1000
	}
	res := &SFNT{
		Font: f,
		cmap: sub,
		upem: upem,
	}
	return res, nil
}

// Lookup implements the [Font] interface.
func (f *SFNT) Lookup(r rune) glyph.ID {
	gid := f.cmap.Lookup(r)
	if int(gid) >= f.Font.NumGlyphs() {
		return 0
	}
	return gid
}

// Outline implements the [Font] interface.
//
// CFF outlines are transformed by the font matrix (and, for CID-keyed
// fonts, by the matrix of the glyph's font dictionary), so that glyf-based
// and CFF-based fonts both report coordinates in units of 1/UnitsPerEm.
func (f *SFNT) Outline(gid glyph.ID) Outline {
	if int(gid) >= f.Font.NumGlyphs() {
		return nil
	}
	return fromPath(f.Font.Outlines.Path(gid), f.glyphMatrix(gid))
}

func (f *SFNT) glyphMatrix(gid glyph.ID) matrix.Matrix {
	fm := f.Font.FontMatrix
	if o, ok := f.Font.Outlines.(*cff.Outlines); ok && o.IsCIDKeyed() {
		fm = o.FontMatrices[o.FDSelect(gid)].Mul(fm)
	}
	if fm.IsZero() {
		return matrix.Identity
	}
	return fm.Scale(f.upem, f.upem)
}

// Advance implements the [Font] interface.
func (f *SFNT) Advance(gid glyph.ID) float64 {
	if int(gid) >= f.Font.NumGlyphs() {
		return 0
	}
	return f.Font.GlyphWidthPDF(gid) * f.upem / 1000
}

// Scale implements the [Font] interface.
func (f *SFNT) Scale(size float64) (h, v float64) {
	q := size / f.upem
	return q, q
}
