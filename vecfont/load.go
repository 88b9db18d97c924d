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
	"bytes"
	"fmt"
	"os"

	"github.com/go-text/typesetting/font"
	"seehuhn.de/go/sfnt"
)

// Load reads a font file.
//
// TrueType and OpenType files are read using seehuhn.de/go/sfnt.  Font
// collections are read using go-text, and index selects the font within
// the collection.  For single fonts, index must be 0.
func Load(fname string, index int) (Font, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return f, nil
}

// Parse is like [Load], but reads the font from memory.
func Parse(data []byte, index int) (Font, error) {
	if isCollection(data) {
		faces, err := font.ParseTTC(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(faces) {
			return nil, fmt.Errorf("font index %d out of range [0, %d)",
				index, len(faces))
		}
		return FromFace(faces[index]), nil
	}
	if index != 0 {
		return nil, fmt.Errorf("font index %d given for a single font", index)
	}

	info, err := sfnt.Read(bytes.NewReader(data))
	if err == nil {
		var f *SFNT
		f, err = FromSFNT(info)
		if err == nil {
			return f, nil
		}
	}

	// go-text accepts some fonts which sfnt rejects, for example fonts
	// with unusual cmap subtables.
	face, err2 := font.ParseTTF(bytes.NewReader(data))
	if err2 != nil {
		return nil, err
	}
	return FromFace(face), nil
}

func isCollection(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "ttcf"
}
