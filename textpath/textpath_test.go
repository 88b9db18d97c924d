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

package textpath

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/image/font/gofont/goregular"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/watermark/vecfont"
)

// testFont is a font with 1000 design units per em and a few hand-made
// glyphs:
//
//   - 'A': two square contours, width 600
//   - 'o': one contour made of quadratic curves, width 500
//   - 'c': one contour made of a cubic curve and a line, width 400
//   - ' ': no outline, width 250
type testFont struct{}

var testGlyphs = map[rune]glyph.ID{'A': 1, 'o': 2, 'c': 3, ' ': 4}

var testWidths = map[glyph.ID]float64{0: 700, 1: 600, 2: 500, 3: 400, 4: 250}

func square(x0, y0, x1, y1 float64) vecfont.Outline {
	p := []vec.Vec2{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	var res vecfont.Outline
	for i := range p {
		res = append(res, vecfont.Segment{
			Kind:  vecfont.Line,
			Start: p[i],
			End:   p[(i+1)%len(p)],
		})
	}
	return res
}

func (testFont) Lookup(r rune) glyph.ID {
	return testGlyphs[r]
}

func (testFont) Outline(gid glyph.ID) vecfont.Outline {
	switch gid {
	case 1:
		a := square(0, 0, 100, 100)
		return append(a, square(300, 0, 400, 100)...)
	case 2:
		return vecfont.Outline{
			{
				Kind:  vecfont.Quad,
				Start: vec.Vec2{X: 0, Y: 0},
				Ctrl:  [2]vec.Vec2{{X: 250, Y: 400}},
				End:   vec.Vec2{X: 500, Y: 0},
			},
			{
				Kind:  vecfont.Quad,
				Start: vec.Vec2{X: 500, Y: 0},
				Ctrl:  [2]vec.Vec2{{X: 250, Y: -400}},
				End:   vec.Vec2{X: 0, Y: 0},
			},
		}
	case 3:
		return vecfont.Outline{
			{
				Kind:  vecfont.Cubic,
				Start: vec.Vec2{X: 0, Y: 0},
				Ctrl:  [2]vec.Vec2{{X: 0, Y: 300}, {X: 400, Y: 300}},
				End:   vec.Vec2{X: 400, Y: 0},
			},
			{
				Kind:  vecfont.Line,
				Start: vec.Vec2{X: 400, Y: 0},
				End:   vec.Vec2{X: 0, Y: 0},
			},
		}
	default:
		return nil
	}
}

func (testFont) Advance(gid glyph.ID) float64 {
	return testWidths[gid]
}

func (testFont) Scale(size float64) (float64, float64) {
	return size / 1000, size / 1000
}

func countOps(s content.Stream) map[content.OpName]int {
	res := make(map[content.OpName]int)
	for _, op := range s {
		res[op.Name]++
	}
	return res
}

func args(t *testing.T, op content.Operator) []float64 {
	t.Helper()
	var res []float64
	for _, a := range op.Args {
		switch x := a.(type) {
		case pdf.Number:
			res = append(res, float64(x))
		case pdf.Real:
			res = append(res, float64(x))
		case pdf.Integer:
			res = append(res, float64(x))
		default:
			t.Fatalf("unexpected argument %T for %q", a, op.Name)
		}
	}
	return res
}

func TestMeasureWidth(t *testing.T) {
	f := testFont{}
	const size = 26

	for _, text := range []string{"A", "A A", "   ", "oc A", "Acé"} {
		var want float64
		for _, r := range text {
			want += testWidths[testGlyphs[r]] * size / 1000
		}
		got := MeasureWidth(f, text, size)
		if d := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); d != "" {
			t.Errorf("%q: width mismatch (-want +got):\n%s", text, d)
		}

		d, err := Vectorize(f, text, 0, 0, size, DefaultPaint)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, d.Width, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%q: measured and rendered width differ:\n%s", text, diff)
		}
	}
}

func TestContours(t *testing.T) {
	f := testFont{}

	type testCase struct {
		text     string
		contours int
	}
	cases := []testCase{
		{"A", 2},
		{"o", 1},
		{"c", 1},
		{"A o", 3},
		{"AAoc", 6},
		{" oo ", 2},
	}
	for _, c := range cases {
		d, err := Vectorize(f, c.text, 10, 20, 26, DefaultPaint)
		if err != nil {
			t.Fatal(err)
		}
		n := countOps(d.Stream)
		if n[content.OpMoveTo] != c.contours {
			t.Errorf("%q: %d move-to operators, expected %d",
				c.text, n[content.OpMoveTo], c.contours)
		}
		if n[content.OpClosePath] != c.contours {
			t.Errorf("%q: %d close-path operators, expected %d",
				c.text, n[content.OpClosePath], c.contours)
		}
		if n[content.OpFill] != 1 {
			t.Errorf("%q: %d fill operators, expected 1", c.text, n[content.OpFill])
		}
		if d.Contours != c.contours {
			t.Errorf("%q: Contours = %d, expected %d", c.text, d.Contours, c.contours)
		}

		// the stream ends with "f Q", and all path construction happens
		// before the fill
		k := len(d.Stream)
		if k < 2 || d.Stream[k-2].Name != content.OpFill || d.Stream[k-1].Name != content.OpPopGraphicsState {
			t.Errorf("%q: stream does not end with f Q", c.text)
		}
	}
}

func TestStreamPrologue(t *testing.T) {
	d, err := Vectorize(testFont{}, "A", 0, 0, 26, DefaultPaint)
	if err != nil {
		t.Fatal(err)
	}
	var names []content.OpName
	for _, op := range d.Stream[:3] {
		names = append(names, op.Name)
	}
	want := []content.OpName{
		content.OpPushGraphicsState,
		content.OpSetExtGState,
		content.OpSetFillRGB,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("prologue mismatch (-want +got):\n%s", diff)
	}
	if name := d.Stream[1].Args[0]; name != GStateName {
		t.Errorf("graphics state is %v, expected %v", name, GStateName)
	}
	if diff := cmp.Diff([]float64{0.1, 0.1, 0.1}, args(t, d.Stream[2])); diff != "" {
		t.Errorf("fill color mismatch:\n%s", diff)
	}
	gs := d.Res.ExtGState[GStateName]
	if gs == nil || gs.FillAlpha != 0.1 || gs.StrokeAlpha != 0.1 {
		t.Errorf("unexpected graphics state %#v", gs)
	}
}

func TestNoVisibleGlyphs(t *testing.T) {
	for _, text := range []string{"", "  "} {
		d, err := Vectorize(testFont{}, text, 0, 0, 26, DefaultPaint)
		if err != nil {
			t.Fatal(err)
		}
		var names []content.OpName
		for _, op := range d.Stream {
			names = append(names, op.Name)
		}
		want := []content.OpName{
			content.OpPushGraphicsState,
			content.OpSetExtGState,
			content.OpSetFillRGB,
			content.OpPopGraphicsState,
		}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("%q: unexpected stream (-want +got):\n%s", text, diff)
		}
		if !d.Bounds.IsZero() {
			t.Errorf("%q: non-zero bounds %v", text, d.Bounds)
		}
	}
}

func TestBadSize(t *testing.T) {
	for _, size := range []float64{0, -1} {
		_, err := Vectorize(testFont{}, "A", 0, 0, size, DefaultPaint)
		if !errors.Is(err, ErrSize) {
			t.Errorf("size %g: got %v, expected ErrSize", size, err)
		}
	}
}

func quadAt(p0, p1, p2 vec.Vec2, t float64) vec.Vec2 {
	s := 1 - t
	return p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
}

func cubicAt(p0, p1, p2, p3 vec.Vec2, t float64) vec.Vec2 {
	s := 1 - t
	return p0.Mul(s * s * s).
		Add(p1.Mul(3 * s * s * t)).
		Add(p2.Mul(3 * s * t * t)).
		Add(p3.Mul(t * t * t))
}

func TestElevate(t *testing.T) {
	p0 := vec.Vec2{X: 1, Y: 2}
	p1 := vec.Vec2{X: 7, Y: 11}
	p2 := vec.Vec2{X: 13, Y: -3}

	c1, c2 := Elevate(p0, p1, p2)
	opt := cmpopts.EquateApprox(0, 1e-12)
	if d := cmp.Diff(p0.Add(p1.Sub(p0).Mul(2.0/3.0)), c1, opt); d != "" {
		t.Errorf("C1 mismatch:\n%s", d)
	}
	if d := cmp.Diff(p2.Add(p1.Sub(p2).Mul(2.0/3.0)), c2, opt); d != "" {
		t.Errorf("C2 mismatch:\n%s", d)
	}

	for _, s := range []float64{0, 0.25, 0.5, 0.75, 1} {
		want := quadAt(p0, p1, p2, s)
		got := cubicAt(p0, c1, c2, p2, s)
		if d := cmp.Diff(want, got, opt); d != "" {
			t.Errorf("t=%g: curves differ (-quad +cubic):\n%s", s, d)
		}
	}
}

// TestQuadInStream checks that quadratic outline segments appear as exactly
// elevated cubic curves in the content stream.
func TestQuadInStream(t *testing.T) {
	// With size 1000 and the origin at (0, 0), text space coordinates
	// coincide with design units.
	d, err := Vectorize(testFont{}, "o", 0, 0, 1000, DefaultPaint)
	if err != nil {
		t.Fatal(err)
	}

	quads := testFont{}.Outline(2)
	var curves [][]float64
	for _, op := range d.Stream {
		if op.Name == content.OpCurveTo {
			curves = append(curves, args(t, op))
		}
	}
	if len(curves) != len(quads) {
		t.Fatalf("found %d curves, expected %d", len(curves), len(quads))
	}

	opt := cmpopts.EquateApprox(0, 1e-9)
	for i, q := range quads {
		c1, c2 := Elevate(q.Start, q.Ctrl[0], q.End)
		want := []float64{c1.X, c1.Y, c2.X, c2.Y, q.End.X, q.End.Y}
		if diff := cmp.Diff(want, curves[i], opt); diff != "" {
			t.Errorf("curve %d mismatch (-want +got):\n%s", i, diff)
		}

		got1 := vec.Vec2{X: curves[i][0], Y: curves[i][1]}
		got2 := vec.Vec2{X: curves[i][2], Y: curves[i][3]}
		for _, s := range []float64{0, 0.25, 0.5, 0.75, 1} {
			a := quadAt(q.Start, q.Ctrl[0], q.End, s)
			b := cubicAt(q.Start, got1, got2, q.End, s)
			if diff := cmp.Diff(a, b, opt); diff != "" {
				t.Errorf("curve %d, t=%g: (-quad +cubic):\n%s", i, s, diff)
			}
		}
	}
}

func TestPlacement(t *testing.T) {
	// "A " followed by "A": the second 'A' starts after 600+250 design
	// units, scaled by 26/1000.
	d, err := Vectorize(testFont{}, "A A", 5, 7, 26, DefaultPaint)
	if err != nil {
		t.Fatal(err)
	}
	var moves [][]float64
	for _, op := range d.Stream {
		if op.Name == content.OpMoveTo {
			moves = append(moves, args(t, op))
		}
	}
	const q = 26.0 / 1000
	want := [][]float64{
		{5, 7},
		{5 + 300*q, 7},
		{5 + 850*q, 7},
		{5 + (850+300)*q, 7},
	}
	if diff := cmp.Diff(want, moves, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("move-to mismatch (-want +got):\n%s", diff)
	}

	wantBounds := []float64{5, 7, 5 + (850+400)*q, 7 + 100*q}
	gotBounds := []float64{d.Bounds.LLx, d.Bounds.LLy, d.Bounds.URx, d.Bounds.URy}
	if diff := cmp.Diff(wantBounds, gotBounds, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
}

// TestRealFont checks that the stream for a real font is a valid form
// XObject content stream.
func TestRealFont(t *testing.T) {
	f, err := vecfont.Parse(goregular.TTF, 0)
	if err != nil {
		t.Fatal(err)
	}
	d, err := Vectorize(f, "Hello, World!", 0, 0, 26, DefaultPaint)
	if err != nil {
		t.Fatal(err)
	}
	if d.Contours == 0 {
		t.Fatal("no contours")
	}
	buf := &bytes.Buffer{}
	err = content.Write(buf, d.Stream, pdf.V1_7, content.Form, d.Res)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(MeasureWidth(f, "Hello, World!", 26), d.Width); diff != "" {
		t.Errorf("width mismatch:\n%s", diff)
	}
}
