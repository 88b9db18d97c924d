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
	"fmt"
	"math"

	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/watermark/textpath"
	"seehuhn.de/go/watermark/tiling"
)

// Config holds the parameters of a watermarking run.
//
// Use [DefaultConfig] to get a Config with the default values, and change
// fields as needed before starting the run.  A Config must not be modified
// while a run is using it.
type Config struct {
	// Size is the point size of the watermark text.
	Size float64

	// Angle is the angle of the text in degrees, counter-clockwise.
	Angle float64

	// HorizontalGap is the space between two copies of the text in a row.
	HorizontalGap float64

	// VerticalMultiplier gives the distance between rows, as a multiple of
	// Size.
	VerticalMultiplier float64

	// CoverageMultiplier scales the page diagonal to get the extent of the
	// grid.  The minimum is 1.5.
	CoverageMultiplier float64

	// CenterOffset moves the center of the grid away from the page center.
	CenterOffset vec.Vec2

	// RowOverscan adds extra rows at the start of the grid.
	RowOverscan float64

	// VisibilityMargin is the distance outside the visible page area within
	// which copies of the text are kept.
	VisibilityMargin float64

	// MaxInstances limits the number of grid positions on a page.
	MaxInstances int

	// Alpha is the opacity of the text.
	Alpha float64

	// Gray is the gray level of the text, from 0 (black) to 1 (white).
	Gray float64

	// ResourceName is the preferred name of the watermark in the page
	// resource dictionaries.
	ResourceName pdf.Name

	// BBox is the minimal bounding box of the watermark form XObject.  The
	// box is extended as needed to include the text.
	BBox pdf.Rectangle

	// FontIndex selects a font from a font collection.
	FontIndex int
}

// DefaultConfig returns a new Config with the default settings.
func DefaultConfig() *Config {
	p := tiling.DefaultParams
	return &Config{
		Size:               26,
		Angle:              60,
		HorizontalGap:      p.HorizontalGap,
		VerticalMultiplier: p.VerticalMultiplier,
		CoverageMultiplier: p.CoverageMultiplier,
		CenterOffset:       p.CenterOffset,
		RowOverscan:        p.RowOverscan,
		VisibilityMargin:   p.VisibilityMargin,
		MaxInstances:       p.MaxInstances,
		Alpha:              0.1,
		Gray:               0.1,
		ResourceName:       "Watermark1",
		BBox:               pdf.Rectangle{LLx: -10, LLy: -50, URx: 2000, URy: 200},
	}
}

// Validate checks the configuration for errors which can be detected
// before any document is read.
//
// Problems with the text size or the grid spacing are reported as
// [ErrSizing], all other problems as [ErrConfig].
func (c *Config) Validate() error {
	for _, x := range []float64{c.Size, c.Angle, c.HorizontalGap,
		c.VerticalMultiplier, c.CoverageMultiplier, c.CenterOffset.X,
		c.CenterOffset.Y, c.RowOverscan, c.VisibilityMargin} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite parameter", ErrSizing)
		}
	}
	if c.Size <= 0 {
		return fmt.Errorf("%w: point size %g", ErrSizing, c.Size)
	}
	if c.VerticalMultiplier <= 0 {
		return fmt.Errorf("%w: vertical multiplier %g", ErrSizing, c.VerticalMultiplier)
	}
	if c.CoverageMultiplier < tiling.MinCoverage {
		return fmt.Errorf("%w: coverage multiplier %g is below %g",
			ErrSizing, c.CoverageMultiplier, tiling.MinCoverage)
	}

	if c.MaxInstances <= 0 {
		return fmt.Errorf("%w: instance limit %d", ErrConfig, c.MaxInstances)
	}
	if !(c.Alpha >= 0 && c.Alpha <= 1) {
		return fmt.Errorf("%w: alpha %g not in [0, 1]", ErrConfig, c.Alpha)
	}
	if !(c.Gray >= 0 && c.Gray <= 1) {
		return fmt.Errorf("%w: gray level %g not in [0, 1]", ErrConfig, c.Gray)
	}
	if c.ResourceName == "" {
		return fmt.Errorf("%w: empty resource name", ErrConfig)
	}
	if !(c.BBox.Dx() > 0) || !(c.BBox.Dy() > 0) {
		return fmt.Errorf("%w: empty bounding box %s", ErrConfig, c.BBox.String())
	}
	if c.FontIndex < 0 {
		return fmt.Errorf("%w: font index %d", ErrConfig, c.FontIndex)
	}
	return nil
}

func (c *Config) params() tiling.Params {
	p := tiling.DefaultParams
	p.HorizontalGap = c.HorizontalGap
	p.VerticalMultiplier = c.VerticalMultiplier
	p.CoverageMultiplier = c.CoverageMultiplier
	p.CenterOffset = c.CenterOffset
	p.RowOverscan = c.RowOverscan
	p.VisibilityMargin = c.VisibilityMargin
	p.MaxInstances = c.MaxInstances
	return p
}

func (c *Config) paint() textpath.Paint {
	return textpath.Paint{
		Alpha: c.Alpha,
		Fill:  color.DeviceRGB{c.Gray, c.Gray, c.Gray},
	}
}

// ComposeText returns the default watermark text for a recipient and a
// date.
func ComposeText(name, date string) string {
	return "致" + name + "-" + date + ":高度保密"
}
