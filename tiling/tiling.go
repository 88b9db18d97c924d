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

// Package tiling computes a rotated grid of watermark positions for a page.
//
// The grid is laid out in a coordinate system (u, v) which is rotated by the
// watermark angle plus the page rotation, centered near the middle of the
// page.  Rows run along u, with one watermark per row step; rows are stacked
// along v.  The grid is large enough to cover the page for every angle, and
// positions which are far outside the page are dropped.
package tiling

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/graphics/content/builder"
)

var (
	// ErrSizing indicates that the grid steps are too small or that the
	// parameters are not finite.
	ErrSizing = errors.New("invalid watermark sizing")

	// ErrDensity indicates that the grid would contain more instances than
	// allowed.
	ErrDensity = errors.New("too many watermark instances")
)

// Params controls the grid layout.
type Params struct {
	// HorizontalGap is the space between two watermarks in a row.
	HorizontalGap float64

	// VerticalMultiplier gives the row distance, as a multiple of the point
	// size.
	VerticalMultiplier float64

	// CoverageMultiplier scales the page diagonal to get the half-extent
	// of the grid.  Values below 1.5 cannot cover rotated pages.
	CoverageMultiplier float64

	// CenterOffset moves the grid center away from the page center.
	CenterOffset vec.Vec2

	// RowOverscan adds extra rows below the grid.
	RowOverscan float64

	// VisibilityMargin is the distance outside the page within which
	// watermarks are kept.
	VisibilityMargin float64

	// MaxInstances limits the number of grid positions, before culling.
	MaxInstances int

	// MinStep is the smallest allowed row and column distance.
	MinStep float64
}

// DefaultParams are the parameters used when nothing else is specified.
var DefaultParams = Params{
	HorizontalGap:      30,
	VerticalMultiplier: 6,
	CoverageMultiplier: 2.5,
	CenterOffset:       vec.Vec2{X: 50, Y: -100},
	RowOverscan:        200,
	VisibilityMargin:   200,
	MaxInstances:       1_000_000,
	MinStep:            1e-3,
}

// MinCoverage is the smallest allowed value for Params.CoverageMultiplier.
const MinCoverage = 1.5

// Plan is the watermark layout for one page.
type Plan struct {
	// Stream draws all watermark instances.  Each instance is wrapped in
	// q/Q and positioned with cm.
	Stream content.Stream

	// Res lists the resources used by Stream.  The XObject entry is a
	// stand-in for the drawable which the caller registered under the
	// given name.
	Res *content.Resources

	// Anchors are the page space positions of the kept instances, in the
	// order they are drawn.
	Anchors []vec.Vec2

	// Estimated is the number of grid positions before culling.
	Estimated int
}

// Layout computes the watermark grid for a page.
//
// The drawable is referred to by its resource name.  Width and height give
// the visible page area, textWidth is the advance width of the watermark
// text at the given point size, angle is the watermark angle in degrees,
// and rotation is the page rotation in degrees.
func Layout(name pdf.Name, size, angle, width, height, textWidth float64, rotation int, p Params) (*Plan, error) {
	for _, x := range []float64{size, angle, width, height, textWidth,
		p.HorizontalGap, p.VerticalMultiplier, p.CoverageMultiplier,
		p.CenterOffset.X, p.CenterOffset.Y, p.RowOverscan, p.VisibilityMargin} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, ErrSizing
		}
	}
	minStep := p.MinStep
	if minStep <= 0 {
		minStep = DefaultParams.MinStep
	}

	inner := textWidth + p.HorizontalGap
	outer := size * p.VerticalMultiplier
	if !(inner > minStep) || !(outer > minStep) {
		return nil, ErrSizing
	}
	if p.CoverageMultiplier < MinCoverage {
		return nil, ErrSizing
	}

	theta := angle + float64(rotation)
	diag := math.Hypot(width, height) * p.CoverageMultiplier
	cx := width/2 + p.CenterOffset.X
	cy := height/2 + p.CenterOffset.Y

	uCount := math.Ceil(2 * diag / inner)
	vCount := math.Ceil((2*diag + p.RowOverscan) / outer)
	uStart := -diag
	vStart := -diag - p.RowOverscan

	// The product is computed in floating point, so that huge grids are
	// rejected without integer overflow.
	total := (vCount + 1) * (uCount + 1)
	if uCount < 0 || vCount < 0 || total > float64(p.MaxInstances) {
		return nil, ErrDensity
	}
	nu, nv := int(uCount), int(vCount)

	rot := matrix.RotateDeg(theta)
	toPage := rot.Translate(cx, cy)
	m := p.VisibilityMargin

	res := &content.Resources{
		XObject: map[pdf.Name]graphics.XObject{name: placeholder{}},
	}
	b := builder.New(content.Page, res)

	plan := &Plan{
		Res:       res,
		Estimated: int(total),
	}
	for vi := 0; vi <= nv; vi++ {
		v := vStart + float64(vi)*outer
		for ui := 0; ui <= nu; ui++ {
			u := uStart + float64(ui)*inner
			x, y := toPage.Apply(u, v)
			if x < -m || x > width+m || y < -m || y > height+m {
				continue
			}
			plan.Anchors = append(plan.Anchors, vec.Vec2{X: x, Y: y})

			b.PushGraphicsState()
			b.Transform(rot.Translate(x, y))
			b.DrawXObject(placeholder{})
			b.PopGraphicsState()
		}
	}

	if err := b.Close(); err != nil {
		return nil, err
	}
	stream, err := b.Harvest()
	if err != nil {
		return nil, err
	}
	plan.Stream = stream
	return plan, nil
}

// placeholder stands for the drawable in a plan's resources.  The real
// object is owned by the caller.
type placeholder struct{}

func (placeholder) Subtype() pdf.Name {
	return "Form"
}

func (placeholder) Embed(*pdf.EmbedHelper) (pdf.Native, error) {
	return nil, errPlaceholder
}

var errPlaceholder = errors.New("tiling: placeholder XObject cannot be embedded")
