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

package overlay

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/watermark/internal/testpdf"
)

// marker is an embedder which writes a small dictionary.
type marker struct {
	value int
}

func (m marker) Embed(rm *pdf.EmbedHelper) (pdf.Native, error) {
	ref := rm.Alloc()
	err := rm.Out().Put(ref, pdf.Dict{"Marker": pdf.Integer(m.value)})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// direct is an embedder which returns a direct object.
type direct struct{}

func (direct) Embed(*pdf.EmbedHelper) (pdf.Native, error) {
	return pdf.Array{pdf.Integer(1), pdf.Integer(2)}, nil
}

func openSimple(t *testing.T, n int) *Document {
	t.Helper()
	d, err := testpdf.Simple(n)
	if err != nil {
		t.Fatal(err)
	}
	d.ID = [][]byte{[]byte("0123456789abcdef"), []byte("fedcba9876543210")}
	d.Title = "Test Document"
	data, err := testpdf.Build(d)
	if err != nil {
		t.Fatal(err)
	}
	r, err := testpdf.Open(data)
	if err != nil {
		t.Fatal(err)
	}
	return New(r)
}

func readContent(t *testing.T, r pdf.Getter, page pdf.Reference) string {
	t.Helper()
	stm, err := pagetree.ContentStream(r, page)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(stm)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRoundTrip(t *testing.T) {
	doc := openSimple(t, 2)
	doc.RequireVersion(pdf.V1_4) // must not lower the version

	pages, err := pagetree.FindPages(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("found %d pages, expected 2", len(pages))
	}

	// modify the first page
	dict, err := pdf.GetDict(doc, pages[0])
	if err != nil {
		t.Fatal(err)
	}
	newDict := dict.Clone()
	extra := doc.PutStream(nil, []byte("1 0 0 rg 0 0 10 10 re f\n"))
	newDict["Contents"] = pdf.Array{dict["Contents"], extra}
	newDict["Marker"] = doc.Defer(marker{value: 7})
	newDict["Direct"] = doc.Defer(direct{})
	if err := doc.Put(pages[0], newDict); err != nil {
		t.Fatal(err)
	}

	// the modified page is visible through the Document
	got := readContent(t, doc, pages[0])
	want := "0 0 1 rg 100 100 200 200 re f\n\n1 0 0 rg 0 0 10 10 re f\n"
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("content before writing (-want +got):\n%s", d)
	}
	if _, err := doc.Get(newDict["Marker"].(pdf.Reference), true); !errors.Is(err, ErrDeferred) {
		t.Errorf("deferred object: got %v, expected ErrDeferred", err)
	}
	if doc.Modified() != 4 {
		t.Errorf("Modified() = %d, expected 4", doc.Modified())
	}

	buf := &bytes.Buffer{}
	if err := doc.Write(buf); err != nil {
		t.Fatal(err)
	}

	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	meta := r.GetMeta()
	if meta.Version != pdf.V1_7 {
		t.Errorf("version %s, expected 1.7", meta.Version)
	}
	if meta.Info == nil || meta.Info.Title != "Test Document" {
		t.Errorf("document information was lost: %v", meta.Info)
	}
	if len(meta.ID) != 2 || string(meta.ID[0]) != "0123456789abcdef" {
		t.Errorf("file identifier was not preserved: %q", meta.ID)
	}

	outPages, err := pagetree.FindPages(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(outPages) != 2 {
		t.Fatalf("output has %d pages, expected 2", len(outPages))
	}
	if got := readContent(t, r, outPages[0]); got != want {
		t.Errorf("page 1 content after writing: %q", got)
	}
	if got := readContent(t, r, outPages[1]); got != "0 0 1 rg 100 100 200 200 re f\n" {
		t.Errorf("page 2 content after writing: %q", got)
	}

	outDict, err := pdf.GetDict(r, outPages[0])
	if err != nil {
		t.Fatal(err)
	}
	m, err := pdf.GetDict(r, outDict["Marker"])
	if err != nil {
		t.Fatal(err)
	}
	if m["Marker"] != pdf.Integer(7) {
		t.Errorf("deferred object not written correctly: %v", m)
	}
	a, err := pdf.GetArray(r, outDict["Direct"])
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 {
		t.Errorf("direct deferred object not written correctly: %v", a)
	}

	// new streams are compressed
	contents, err := pdf.GetArray(r, outDict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	stm, err := pdf.GetStream(r, contents[1])
	if err != nil {
		t.Fatal(err)
	}
	if stm.Dict["Filter"] != pdf.Name("FlateDecode") {
		t.Errorf("new stream has filter %v", stm.Dict["Filter"])
	}
}

func TestRequireVersion(t *testing.T) {
	d, err := testpdf.Simple(1)
	if err != nil {
		t.Fatal(err)
	}
	d.Version = pdf.V1_3
	data, err := testpdf.Build(d)
	if err != nil {
		t.Fatal(err)
	}
	r, err := testpdf.Open(data)
	if err != nil {
		t.Fatal(err)
	}
	doc := New(r)
	doc.RequireVersion(pdf.V1_4)

	buf := &bytes.Buffer{}
	if err := doc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-1.4") {
		t.Errorf("output starts with %q", buf.String()[:8])
	}
}

func TestPutStreamRejected(t *testing.T) {
	doc := openSimple(t, 1)
	err := doc.Put(doc.Alloc(), &pdf.Stream{Dict: pdf.Dict{}, R: strings.NewReader("")})
	if err == nil {
		t.Error("stream accepted by Put")
	}
}

func TestUnknownNewObject(t *testing.T) {
	doc := openSimple(t, 1)
	ref := doc.Alloc()
	obj, err := doc.Get(ref, true)
	if obj != nil || err != nil {
		t.Errorf("got %v, %v for an unused reference", obj, err)
	}
}

// TestSaveInPlace checks that a document can be saved over its own input
// file.
func TestSaveInPlace(t *testing.T) {
	d, err := testpdf.Simple(3)
	if err != nil {
		t.Fatal(err)
	}
	fname := testpdf.WriteFile(t, d)

	doc, err := Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := pagetree.FindPages(doc)
	if err != nil {
		t.Fatal(err)
	}
	dict, err := pdf.GetDict(doc, pages[2])
	if err != nil {
		t.Fatal(err)
	}
	dict = dict.Clone()
	dict["Contents"] = doc.PutStream(nil, []byte("% replaced\n"))
	if err := doc.Put(pages[2], dict); err != nil {
		t.Fatal(err)
	}

	if err := doc.Save(fname); err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(fname))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temporary files left behind: %v", names)
	}

	r, err := pdf.Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	outPages, err := pagetree.FindPages(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(outPages) != 3 {
		t.Fatalf("%d pages, expected 3", len(outPages))
	}
	if got := readContent(t, r, outPages[2]); got != "% replaced\n" {
		t.Errorf("page 3 content %q", got)
	}
}

func TestSaveFailure(t *testing.T) {
	doc := openSimple(t, 1)
	fname := filepath.Join(t.TempDir(), "missing", "out.pdf")
	if err := doc.Save(fname); err == nil {
		t.Error("saving into a missing directory succeeded")
	}
}
