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

package watermark

import (
	"seehuhn.de/go/pdf"
)

// MaxTreeDepth is the maximal number of page tree nodes, including the page
// itself, which are searched for inherited attributes.
const MaxTreeDepth = 10

// DefaultBox is used for pages which specify neither a crop box nor a media
// box.
var DefaultBox = pdf.Rectangle{URx: 595, URy: 842}

// PageGeometry describes the visible area of a page.
type PageGeometry struct {
	// Box is the visible area of the page, in default user space.
	Box pdf.Rectangle

	// Rotate is the page rotation in degrees.  This is one of 0, 90, 180
	// and 270.
	Rotate int
}

// Geometry determines the visible area and the rotation of a page.
//
// The crop box is used if present, otherwise the media box.  Both boxes and
// the rotation can be inherited from ancestor nodes in the page tree.
// Malformed values are ignored.
func Geometry(r pdf.Getter, page pdf.Dict) PageGeometry {
	g := PageGeometry{
		Box:    DefaultBox,
		Rotate: pageRotation(r, page),
	}
	for _, key := range []pdf.Name{"CropBox", "MediaBox"} {
		if box := inheritedBox(r, page, key); box != nil {
			g.Box = *box
			break
		}
	}
	return g
}

// ancestors calls yield for the page and its ancestors, at most
// MaxTreeDepth times.
func ancestors(r pdf.Getter, page pdf.Dict, yield func(pdf.Dict) bool) {
	node := page
	for range MaxTreeDepth {
		if node == nil || !yield(node) {
			return
		}
		parent, err := pdf.GetDict(r, node["Parent"])
		if err != nil {
			return
		}
		node = parent
	}
}

// pageRotation returns the effective /Rotate value of a page.  The first
// integer value found on the way to the root of the page tree is used.
func pageRotation(r pdf.Getter, page pdf.Dict) int {
	rot := 0
	ancestors(r, page, func(node pdf.Dict) bool {
		obj, err := pdf.Resolve(r, node["Rotate"])
		if err != nil {
			return true
		}
		if x, ok := obj.(pdf.Integer); ok {
			rot = normalizeRotation(int64(x))
			return false
		}
		return true
	})
	return rot
}

func normalizeRotation(x int64) int {
	if x%90 != 0 {
		return 0
	}
	x %= 360
	if x < 0 {
		x += 360
	}
	return int(x)
}

// inheritedBox returns the first valid rectangle stored under key in the
// page or one of its ancestors.  Rectangles with zero width or height are
// skipped.
func inheritedBox(r pdf.Getter, page pdf.Dict, key pdf.Name) *pdf.Rectangle {
	var res *pdf.Rectangle
	ancestors(r, page, func(node pdf.Dict) bool {
		obj, ok := node[key]
		if !ok || obj == nil {
			return true
		}
		box, err := pdf.GetRectangle(r, obj)
		if err != nil || box == nil || !(box.Dx() > 0) || !(box.Dy() > 0) {
			return true
		}
		res = box
		return false
	})
	return res
}

// inherited returns the value of an inheritable page attribute.  The value
// is returned as stored in the page tree, without resolving references.
func inherited(r pdf.Getter, page pdf.Dict, key pdf.Name) pdf.Object {
	var res pdf.Object
	ancestors(r, page, func(node pdf.Dict) bool {
		if obj, ok := node[key]; ok && obj != nil {
			res = obj
			return false
		}
		return true
	})
	return res
}
