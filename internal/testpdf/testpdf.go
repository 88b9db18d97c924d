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

// Package testpdf builds small PDF files in memory, for use in tests.
package testpdf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/pdf"
)

// Page describes one page of a test document.
type Page struct {
	// MediaBox is the page's media box.  If this is nil, the page inherits
	// the media box from the page tree.
	MediaBox *pdf.Rectangle

	// CropBox is the page's crop box, or nil.
	CropBox *pdf.Rectangle

	// Rotate is the value of the page's /Rotate entry, or nil.
	Rotate pdf.Object

	// Content is the page's content stream.
	Content string

	// Malformed marks the content stream as using an unsupported filter, so
	// that it cannot be decoded.
	Malformed bool

	// Resources is the value of the page's /Resources entry, or nil.
	Resources pdf.Object

	// NoType omits the /Type entry from the page dictionary.
	NoType bool

	// Object, if non-nil, is stored in place of the page dictionary.
	Object pdf.Object
}

// Doc describes a test document.
type Doc struct {
	// Version is the PDF version of the file.  The default is PDF 1.7.
	Version pdf.Version

	// Depth is the number of page tree nodes above the pages.  The default
	// is 1, meaning that all pages are children of the root node.
	Depth int

	// Rotate is the value of /Rotate in the root node of the page tree, or
	// nil.
	Rotate pdf.Object

	// IndirectRotate stores the root's /Rotate value as an indirect object.
	IndirectRotate bool

	// MediaBox is the media box of the root node of the page tree, or nil.
	MediaBox *pdf.Rectangle

	// Resources is the resource dictionary of the root node, or nil.
	Resources pdf.Dict

	// ID is the file identifier, or nil.
	ID [][]byte

	// Title is stored in the document information dictionary, if
	// non-empty.
	Title string

	Pages []Page
}

// A4 is the media box of an A4 page in portrait orientation.
var A4 = &pdf.Rectangle{URx: 595, URy: 842}

// Build writes the test document and returns the file contents.
func Build(d *Doc) ([]byte, error) {
	v := d.Version
	if v == 0 {
		v = pdf.V1_7
	}
	depth := max(d.Depth, 1)

	buf := &bytes.Buffer{}
	opt := &pdf.WriterOptions{ID: d.ID}
	w, err := pdf.NewWriter(buf, v, opt)
	if err != nil {
		return nil, err
	}

	nodes := make([]pdf.Reference, depth)
	for i := range nodes {
		nodes[i] = w.Alloc()
	}
	parent := nodes[depth-1]

	var kids pdf.Array
	for _, p := range d.Pages {
		ref := w.Alloc()
		kids = append(kids, ref)

		if p.Object != nil {
			if err := w.Put(ref, p.Object); err != nil {
				return nil, err
			}
			continue
		}

		contentRef := w.Alloc()
		dict := pdf.Dict{}
		if p.Malformed {
			dict["Filter"] = pdf.Name("FooDecode")
		}
		stm, err := w.OpenStream(contentRef, dict)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(stm, p.Content); err != nil {
			return nil, err
		}
		if err := stm.Close(); err != nil {
			return nil, err
		}

		page := pdf.Dict{
			"Type":     pdf.Name("Page"),
			"Parent":   parent,
			"Contents": contentRef,
		}
		if p.MediaBox != nil {
			page["MediaBox"] = p.MediaBox
		}
		if p.CropBox != nil {
			page["CropBox"] = p.CropBox
		}
		if p.Rotate != nil {
			page["Rotate"] = p.Rotate
		}
		if p.Resources != nil {
			page["Resources"] = p.Resources
		}
		if p.NoType {
			delete(page, "Type")
		}
		if err := w.Put(ref, page); err != nil {
			return nil, err
		}
	}

	count := pdf.Integer(len(d.Pages))
	for i, ref := range nodes {
		node := pdf.Dict{
			"Type":  pdf.Name("Pages"),
			"Count": count,
		}
		if i < depth-1 {
			node["Kids"] = pdf.Array{nodes[i+1]}
		} else {
			node["Kids"] = kids
		}
		if i > 0 {
			node["Parent"] = nodes[i-1]
		} else {
			if d.MediaBox != nil {
				node["MediaBox"] = d.MediaBox
			}
			if d.Resources != nil {
				node["Resources"] = d.Resources
			}
			if d.Rotate != nil {
				if d.IndirectRotate {
					rotRef := w.Alloc()
					if err := w.Put(rotRef, d.Rotate); err != nil {
						return nil, err
					}
					node["Rotate"] = rotRef
				} else {
					node["Rotate"] = d.Rotate
				}
			}
		}
		if err := w.Put(ref, node); err != nil {
			return nil, err
		}
	}

	meta := w.GetMeta()
	meta.Catalog.Pages = nodes[0]
	if d.Title != "" {
		meta.Info.Title = pdf.TextString(d.Title)
	} else {
		meta.Info = nil
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Open parses a PDF file created by [Build].
func Open(data []byte) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(data), nil)
}

// WriteFile builds the document and stores it in a temporary directory
// which is removed when the test finishes.  The function returns the file
// name.
func WriteFile(t testing.TB, d *Doc) string {
	t.Helper()

	data, err := Build(d)
	if err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(t.TempDir(), "in.pdf")
	if err := os.WriteFile(fname, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

// ErrNoPages is returned by [Simple] for a page count below one.
var ErrNoPages = errors.New("a document needs at least one page")

// Simple returns a document with n A4 pages, each with a small content
// stream.
func Simple(n int) (*Doc, error) {
	if n < 1 {
		return nil, ErrNoPages
	}
	d := &Doc{MediaBox: A4}
	for range n {
		d.Pages = append(d.Pages, Page{
			Content: "0 0 1 rg 100 100 200 200 re f\n",
		})
	}
	return d, nil
}
