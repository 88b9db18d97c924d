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
	"errors"
	"fmt"

	"seehuhn.de/go/watermark/tiling"
)

var (
	// ErrLoad indicates that the input document or the font could not be
	// read.
	ErrLoad = errors.New("cannot load input")

	// ErrSizing indicates that the text size or the grid spacing is
	// unusable.
	ErrSizing = tiling.ErrSizing

	// ErrDensity indicates that a page would need too many copies of the
	// watermark.
	ErrDensity = tiling.ErrDensity

	// ErrSave indicates that the output document could not be written.
	ErrSave = errors.New("cannot save output")

	// ErrConfig indicates an invalid configuration value.
	ErrConfig = errors.New("invalid configuration")
)

// PageError is returned when a single page cannot be watermarked.  The page
// is left unchanged, and processing continues with the next page.
type PageError struct {
	// Page is the page number, starting at 1.
	Page int

	Err error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

var (
	errNotDict      = errors.New("page object is not a dictionary")
	errResources    = errors.New("malformed resource dictionary")
	errXObjects     = errors.New("malformed XObject dictionary")
	errContents     = errors.New("malformed /Contents entry")
	errNameConflict = errors.New("no free resource name")
	errNoPageTree   = errors.New("missing page tree")
)
