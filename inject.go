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
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/watermark/overlay"
	"seehuhn.de/go/watermark/tiling"
)

// maxNameTries limits the search for a free resource name.
const maxNameTries = 1000

// endMarker is appended to the existing page content while it is parsed.
// The operators which follow the marker in the parsed stream close the
// contexts left open by the page.
const endMarker = "%watermark:end"

// Injector adds a watermark to the pages of a document.
type Injector struct {
	doc *overlay.Document
	cfg *Config

	// form is the reference of the watermark form XObject.
	form pdf.Reference

	// textWidth is the advance width of the watermark text.
	textWidth float64

	pages  []pdf.Reference
	pageNo map[pdf.Reference]int

	// Instances is the total number of watermark copies placed so far.
	Instances int
}

// NewInjector prepares to add the watermark to all pages of doc.
//
// The watermark must be available as a form XObject under the reference
// form, and textWidth must be the advance width of the watermark text.
func NewInjector(doc *overlay.Document, form pdf.Reference, textWidth float64, cfg *Config) (*Injector, error) {
	pages, err := findPages(doc)
	if err != nil {
		return nil, err
	}
	pageNo := make(map[pdf.Reference]int, len(pages))
	for i, ref := range pages {
		if _, seen := pageNo[ref]; !seen {
			pageNo[ref] = i + 1
		}
	}
	return &Injector{
		doc:       doc,
		cfg:       cfg,
		form:      form,
		textWidth: textWidth,
		pages:     pages,
		pageNo:    pageNo,
	}, nil
}

// Pages returns the pages of the document, in document order.
func (inj *Injector) Pages() []pdf.Reference {
	return inj.pages
}

// InjectPage adds the watermark to a single page.
//
// If the page cannot be watermarked because of its structure, a *PageError
// is returned and the page is left unchanged.  Other errors, in particular
// [ErrSizing] and [ErrDensity], concern the whole run.
func (inj *Injector) InjectPage(ref pdf.Reference) error {
	pageNo := inj.pageNo[ref]
	skip := func(err error) error {
		return &PageError{Page: pageNo, Err: err}
	}

	obj, err := pdf.Resolve(inj.doc, ref)
	if err != nil {
		return skip(err)
	}
	page, ok := obj.(pdf.Dict)
	if !ok {
		return skip(errNotDict)
	}

	// Make sure the existing content can be read, before anything is
	// changed.
	v := pdf.GetVersion(inj.doc)
	stm, err := pagetree.ContentStream(inj.doc, page)
	if err != nil {
		return skip(err)
	}
	closing, err := openContexts(stm, v)
	if err != nil {
		return skip(err)
	}
	contents, err := existingContents(inj.doc, page)
	if err != nil {
		return skip(err)
	}

	res, xobj, err := pageResources(inj.doc, page)
	if err != nil {
		return skip(err)
	}
	name, err := freeName(xobj, inj.cfg.ResourceName, inj.form)
	if err != nil {
		return skip(err)
	}

	g := Geometry(inj.doc, page)
	plan, err := tiling.Layout(name, inj.cfg.Size, inj.cfg.Angle,
		g.Box.Dx(), g.Box.Dy(), inj.textWidth, g.Rotate, inj.cfg.params())
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNo, err)
	}

	ops := plan.Stream
	if g.Box.LLx != 0 || g.Box.LLy != 0 {
		shifted := make(content.Stream, 0, len(ops)+3)
		shifted = append(shifted,
			content.Operator{Name: content.OpPushGraphicsState},
			transformOp(matrix.Translate(g.Box.LLx, g.Box.LLy)))
		shifted = append(shifted, ops...)
		shifted = append(shifted, content.Operator{Name: content.OpPopGraphicsState})
		ops = shifted
	}

	// Close what the existing content left open, then restore the graphics
	// state saved before it.
	buf := &bytes.Buffer{}
	for _, op := range closing {
		if err := content.WriteOperator(buf, op); err != nil {
			return err
		}
	}
	buf.WriteString("Q\n")
	err = content.Write(buf, ops, v, content.Page, plan.Res)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNo, err)
	}

	xobj[name] = inj.form
	res["XObject"] = xobj

	newContents := make(pdf.Array, 0, len(contents)+2)
	newContents = append(newContents, inj.doc.PutStream(nil, []byte("q\n")))
	newContents = append(newContents, contents...)
	newContents = append(newContents, inj.doc.PutStream(nil, buf.Bytes()))

	newPage := page.Clone()
	newPage["Resources"] = res
	newPage["Contents"] = newContents
	if err := inj.doc.Put(ref, newPage); err != nil {
		return err
	}

	inj.Instances += len(plan.Anchors)
	Logger().Debug("page watermarked",
		"page", pageNo,
		"rotate", g.Rotate,
		"box", g.Box.String(),
		"instances", len(plan.Anchors),
		"grid", plan.Estimated,
		"resource", string(name))
	return nil
}

// findPages returns the leaves of the page tree, in document order.
// Leaves are kept even if they are not valid page dictionaries, so that
// the page numbers match the ones seen by a viewer.
func findPages(r pdf.Getter) ([]pdf.Reference, error) {
	root := r.GetMeta().Catalog.Pages
	if root == 0 {
		return nil, errNoPageTree
	}

	var pages []pdf.Reference
	todo := []pdf.Reference{root}
	seen := map[pdf.Reference]bool{root: true}
	for len(todo) > 0 {
		ref := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		obj, err := pdf.Resolve(r, ref)
		if pdf.IsReadError(err) {
			return nil, err
		}
		node, isDict := obj.(pdf.Dict)
		if !isDict || !isPageTreeNode(r, node) {
			if ref != root {
				pages = append(pages, ref)
			}
			continue
		}

		kids, err := pdf.Optional(pdf.GetArray(r, node["Kids"]))
		if err != nil {
			return nil, err
		}
		for i := len(kids) - 1; i >= 0; i-- {
			kidRef, ok := kids[i].(pdf.Reference)
			if ok && !seen[kidRef] {
				todo = append(todo, kidRef)
				seen[kidRef] = true
			}
		}
	}
	return pages, nil
}

// isPageTreeNode reports whether node is an intermediate node of the page
// tree.  Nodes without a /Type entry are classified by the presence of
// /Kids.
func isPageTreeNode(r pdf.Getter, node pdf.Dict) bool {
	tp, _ := pdf.GetName(r, node["Type"])
	switch tp {
	case "Pages":
		return true
	case "":
		_, hasKids := node["Kids"]
		return hasKids
	default:
		return false
	}
}

// openContexts parses the content stream stm and returns the operators
// needed to close the contexts which are still open at the end of the
// stream.  For balanced content the result is empty.
func openContexts(stm io.Reader, v pdf.Version) (content.Stream, error) {
	in := io.MultiReader(stm, strings.NewReader("\n"+endMarker+"\n"))
	ops, err := content.ReadStream(in, v, content.Page, &content.Resources{})
	if err != nil {
		return nil, err
	}
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Name != content.OpRawContent || len(op.Args) != 1 {
			continue
		}
		if s, ok := op.Args[0].(pdf.String); ok && string(s) == endMarker {
			return ops[i+1:], nil
		}
	}
	// The marker was swallowed by incomplete trailing content.
	return nil, nil
}

// existingContents returns the elements of the page's /Contents entry.
func existingContents(r pdf.Getter, page pdf.Dict) (pdf.Array, error) {
	obj := page["Contents"]
	resolved, err := pdf.Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := resolved.(type) {
	case nil:
		return nil, nil
	case *pdf.Stream:
		if _, isRef := obj.(pdf.Reference); !isRef {
			return nil, errContents
		}
		return pdf.Array{obj}, nil
	case pdf.Array:
		return append(pdf.Array(nil), x...), nil
	default:
		return nil, errContents
	}
}

// pageResources returns copies of the page's resource dictionary and of
// its XObject sub-dictionary.  Inherited resources are copied into the
// page.
func pageResources(r pdf.Getter, page pdf.Dict) (pdf.Dict, pdf.Dict, error) {
	res, err := pdf.GetDict(r, inherited(r, page, "Resources"))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errResources, err)
	}
	res = res.Clone()
	if res == nil {
		res = pdf.Dict{}
	}

	xobj, err := pdf.GetDict(r, res["XObject"])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errXObjects, err)
	}
	xobj = xobj.Clone()
	if xobj == nil {
		xobj = pdf.Dict{}
	}
	return res, xobj, nil
}

// freeName returns a name under which the watermark can be stored in the
// XObject dictionary.  If base is taken by a different object, the trailing
// number of the name is incremented until a free name is found.
func freeName(xobj pdf.Dict, base pdf.Name, form pdf.Reference) (pdf.Name, error) {
	isFree := func(name pdf.Name) bool {
		obj, ok := xobj[name]
		return !ok || obj == nil || obj == form
	}
	if isFree(base) {
		return base, nil
	}

	prefix := strings.TrimRight(string(base), "0123456789")
	k := 1
	if n, err := strconv.Atoi(string(base)[len(prefix):]); err == nil {
		k = n
	}
	for range maxNameTries {
		k++
		name := pdf.Name(prefix + strconv.Itoa(k))
		if isFree(name) {
			return name, nil
		}
	}
	return "", errNameConflict
}

func transformOp(m matrix.Matrix) content.Operator {
	args := make([]pdf.Object, len(m))
	for i, x := range m {
		args[i] = pdf.Number(x)
	}
	return content.Operator{Name: content.OpTransform, Args: args}
}
