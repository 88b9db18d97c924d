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

// Package overlay implements an editable view of a PDF file.
//
// A [Document] reads objects from an existing PDF file and keeps all
// modifications in memory.  The modified document can be written to a new
// file using [Document.Write] or [Document.Save].  The original file is never
// changed.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"seehuhn.de/go/pdf"
)

// firstNew is the first object number used for new objects.  New objects
// only exist in memory; they are renumbered when the document is written.
const firstNew = 1 << 31

// Document is a PDF file with in-memory modifications.
//
// Document implements the [pdf.Getter] interface, so that all functions
// which read PDF data can be used on the modified document.
type Document struct {
	src    pdf.Getter
	closer io.Closer

	meta pdf.MetaInfo

	objects  map[pdf.Reference]pdf.Native
	streams  map[pdf.Reference]*streamData
	deferred map[pdf.Reference]pdf.Embedder

	nextNumber uint32
}

type streamData struct {
	dict pdf.Dict
	data []byte
}

// ErrDeferred is returned by [Document.Get] for objects which will only be
// created when the document is written.
var ErrDeferred = errors.New("object is not available before the document is written")

// Open opens a PDF file for editing.
//
// The file must remain unchanged until the Document is closed.
func Open(fname string, opt *pdf.ReaderOptions) (*Document, error) {
	r, err := pdf.Open(fname, opt)
	if err != nil {
		return nil, err
	}
	doc := New(r)
	doc.closer = r
	return doc, nil
}

// New creates a Document which reads unmodified objects from src.
func New(src pdf.Getter) *Document {
	meta := *src.GetMeta()
	return &Document{
		src:        src,
		meta:       meta,
		objects:    make(map[pdf.Reference]pdf.Native),
		streams:    make(map[pdf.Reference]*streamData),
		deferred:   make(map[pdf.Reference]pdf.Embedder),
		nextNumber: firstNew,
	}
}

// Close releases the underlying PDF file, if the Document was created by
// [Open].
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// GetMeta implements the [pdf.Getter] interface.
//
// The returned version is the version which will be used when the document
// is written.
func (d *Document) GetMeta() *pdf.MetaInfo {
	return &d.meta
}

// RequireVersion makes sure that the document is written using at least
// PDF version v.
func (d *Document) RequireVersion(v pdf.Version) {
	if d.meta.Version < v {
		d.meta.Version = v
	}
}

// Get implements the [pdf.Getter] interface.
func (d *Document) Get(ref pdf.Reference, canObjStm bool) (pdf.Native, error) {
	if obj, ok := d.objects[ref]; ok {
		return obj, nil
	}
	if s, ok := d.streams[ref]; ok {
		return &pdf.Stream{
			Dict: maps.Clone(s.dict),
			R:    bytes.NewReader(s.data),
		}, nil
	}
	if _, ok := d.deferred[ref]; ok {
		return nil, ErrDeferred
	}
	if ref.Number() >= firstNew {
		return nil, nil
	}
	return d.src.Get(ref, canObjStm)
}

// Alloc allocates a reference for a new object.
func (d *Document) Alloc() pdf.Reference {
	ref := pdf.NewReference(d.nextNumber, 0)
	d.nextNumber++
	return ref
}

// Put replaces an object.  Ref can either refer to an object in the
// original file, or be a reference returned by [Document.Alloc].
//
// Streams must be stored using [Document.PutStream] instead.
func (d *Document) Put(ref pdf.Reference, obj pdf.Native) error {
	if _, isStream := obj.(*pdf.Stream); isStream {
		return errors.New("overlay: use PutStream for streams")
	}
	delete(d.streams, ref)
	delete(d.deferred, ref)
	d.objects[ref] = obj
	return nil
}

// PutStream stores a new stream and returns its reference.
//
// The data is given in decoded form.  When the document is written, the
// data is compressed and the /Filter entry of the dictionary is set
// accordingly.  The dictionary must not contain /Filter, /DecodeParms or
// /Length entries.
func (d *Document) PutStream(dict pdf.Dict, data []byte) pdf.Reference {
	ref := d.Alloc()
	d.streams[ref] = &streamData{
		dict: maps.Clone(dict),
		data: slices.Clone(data),
	}
	return ref
}

// Defer registers an object which is embedded when the document is written.
// The returned reference can be used in place of the object.
//
// This is used for objects like form XObjects, which write themselves using
// a [pdf.ResourceManager].
func (d *Document) Defer(e pdf.Embedder) pdf.Reference {
	ref := d.Alloc()
	d.deferred[ref] = e
	return ref
}

// Modified returns the number of replaced or new objects.
func (d *Document) Modified() int {
	return len(d.objects) + len(d.streams) + len(d.deferred)
}

// Write writes the modified document to w.
//
// All objects reachable from the document catalog are written.
// Unreachable objects of the original file are dropped.
func (d *Document) Write(out io.Writer) error {
	meta := d.GetMeta()

	opt := &pdf.WriterOptions{}
	if len(meta.ID) == 2 {
		opt.ID = meta.ID
	}
	w, err := pdf.NewWriter(out, meta.Version, opt)
	if err != nil {
		return err
	}
	rm := pdf.NewResourceManager(w)
	trans := pdf.NewCopier(w, d)

	// deferred objects
	for _, ref := range sortedKeys(d.deferred) {
		val, err := rm.Embed(d.deferred[ref])
		if err != nil {
			return err
		}
		newRef, isRef := val.(pdf.Reference)
		if !isRef {
			newRef = w.Alloc()
			if err := w.Put(newRef, val); err != nil {
				return err
			}
		}
		trans.Redirect(ref, newRef)
	}
	if err := rm.Close(); err != nil {
		return err
	}

	// new streams
	for _, ref := range sortedKeys(d.streams) {
		s := d.streams[ref]
		dict, err := trans.CopyDict(s.dict)
		if err != nil {
			return err
		}
		newRef := w.Alloc()
		stm, err := w.OpenStream(newRef, dict, pdf.FilterCompress{})
		if err != nil {
			return err
		}
		if _, err := stm.Write(s.data); err != nil {
			return err
		}
		if err := stm.Close(); err != nil {
			return err
		}
		trans.Redirect(ref, newRef)
	}

	// everything reachable from the catalog
	newCatalog, err := pdf.CopierCopyStruct(trans, meta.Catalog)
	if err != nil {
		return err
	}
	wMeta := w.GetMeta()
	wMeta.Catalog = newCatalog
	if meta.Info != nil {
		info := *meta.Info
		wMeta.Info = &info
	} else {
		wMeta.Info = nil
	}
	if len(meta.ID) == 2 {
		wMeta.ID = meta.ID
	}

	return w.Close()
}

// Save writes the modified document to the named file.
//
// The data is first written to a temporary file in the same directory, which
// is then renamed.  This allows fname to be the name of the input file.
func (d *Document) Save(fname string) (err error) {
	dir, base := filepath.Split(fname)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	err = d.Write(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}

	err = os.Rename(tmpName, fname)
	if err != nil {
		return err
	}

	info, err := os.Stat(fname)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: empty output file", fname)
	}
	return nil
}

func sortedKeys[T any](m map[pdf.Reference]T) []pdf.Reference {
	return slices.Sorted(maps.Keys(m))
}
