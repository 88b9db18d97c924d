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

// Package watermark adds a tiled, semi-transparent text watermark to every
// page of a PDF file.
//
// The watermark text is converted into vector outlines, so that the output
// file does not depend on the font.  The outlines are stored once, as a form
// XObject, and every page draws this form many times along a rotated grid
// which covers the visible page area.
//
// Use [Run] to watermark a file, or [Apply] to watermark a document which
// has already been opened.
package watermark

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics/form"

	"seehuhn.de/go/watermark/overlay"
	"seehuhn.de/go/watermark/textpath"
	"seehuhn.de/go/watermark/vecfont"
)

// Result summarizes a watermarking run.
type Result struct {
	// Output is the name of the output file.  This is empty if the result
	// was returned by [Apply].
	Output string

	// Pages is the number of pages in the document.
	Pages int

	// Watermarked is the number of pages which received the watermark.
	Watermarked int

	// Skipped lists the pages, numbered from 1, which could not be
	// watermarked.
	Skipped []int

	// Instances is the total number of watermark copies placed.
	Instances int
}

// Run adds a watermark to the PDF file in and writes the result to out.
//
// The watermark is the given text, rendered with the font loaded from
// fontPath.  If cfg is nil, [DefaultConfig] is used.  The output file may be
// the same as the input file.
//
// Pages which cannot be watermarked are left unchanged and are listed in
// the result; they do not cause an error.
func Run(ctx context.Context, in, out, fontPath, text string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := vecfont.Load(fontPath, cfg.FontIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	doc, err := overlay.Open(in, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer doc.Close()

	res, err := Apply(ctx, doc, f, text, cfg)
	if err != nil {
		return nil, err
	}

	err = doc.Save(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}
	res.Output = out

	Logger().Info("watermark added",
		"output", out,
		"pages", res.Pages,
		"skipped", len(res.Skipped),
		"instances", res.Instances)
	return res, nil
}

// Apply adds a watermark to all pages of doc.  The document is modified in
// memory; the caller is responsible for saving it.
//
// The context is checked before each page.  If it is cancelled, Apply stops
// and returns the context's error; pages processed up to this point remain
// modified.
func Apply(ctx context.Context, doc *overlay.Document, f vecfont.Font, text string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	text = norm.NFC.String(text)
	wm, err := newForm(f, text, cfg)
	if err != nil {
		return nil, err
	}
	textWidth := textpath.MeasureWidth(f, text, cfg.Size)

	// constant alpha in ExtGState dictionaries needs PDF 1.4
	doc.RequireVersion(pdf.V1_4)
	formRef := doc.Defer(wm)

	inj, err := NewInjector(doc, formRef, textWidth, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	res := &Result{
		Pages: len(inj.Pages()),
	}
	for _, ref := range inj.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := inj.InjectPage(ref)
		var pageErr *PageError
		if errors.As(err, &pageErr) {
			Logger().Warn("page skipped", "page", pageErr.Page, "error", pageErr.Err)
			res.Skipped = append(res.Skipped, pageErr.Page)
			continue
		} else if err != nil {
			return nil, err
		}
		res.Watermarked++
	}
	res.Instances = inj.Instances
	return res, nil
}

// NewForm converts the watermark text into a form XObject.
//
// The text is normalized to Unicode NFC before the glyphs are looked up.
// The form's bounding box is cfg.BBox, extended to include all of the text.
func NewForm(f vecfont.Font, text string, cfg *Config) (*form.Form, error) {
	return newForm(f, norm.NFC.String(text), cfg)
}

// newForm is like [NewForm], but expects text to be normalized already.
func newForm(f vecfont.Font, text string, cfg *Config) (*form.Form, error) {
	d, err := textpath.Vectorize(f, text, 0, 0, cfg.Size, cfg.paint())
	if errors.Is(err, textpath.ErrSize) {
		return nil, fmt.Errorf("%w: %w", ErrSizing, err)
	} else if err != nil {
		return nil, err
	}

	bbox := cfg.BBox
	if !d.Bounds.IsZero() {
		bbox.Extend(&pdf.Rectangle{
			LLx: d.Bounds.LLx,
			LLy: d.Bounds.LLy,
			URx: d.Bounds.URx,
			URy: d.Bounds.URy,
		})
	}

	Logger().Debug("watermark text converted",
		"contours", d.Contours,
		"width", d.Width,
		"bbox", bbox.String())

	return &form.Form{
		Content: d.Stream,
		Res:     d.Res,
		BBox:    bbox,
		Matrix:  matrix.Identity,
	}, nil
}
