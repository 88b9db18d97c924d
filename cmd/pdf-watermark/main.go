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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/watermark"
	"seehuhn.de/go/watermark/internal/buildinfo"
	"seehuhn.de/go/watermark/internal/profile"
)

const tool = "pdf-watermark"

var cfg = watermark.DefaultConfig()

var (
	fontArg    = flag.String("font", "", "TrueType or OpenType font `file` for the watermark")
	textArg    = flag.String("text", "", "watermark `text`")
	nameArg    = flag.String("name", "", "recipient `name`, used when -text is not given")
	dateArg    = flag.String("date", time.Now().Format(time.DateOnly), "`date` shown next to the recipient name")
	verbose    = flag.Bool("v", false, "log every page")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile = flag.String("memprofile", "", "write memory profile to `file`")
)

func init() {
	flag.Float64Var(&cfg.Size, "size", cfg.Size, "point `size` of the text")
	flag.Float64Var(&cfg.Angle, "angle", cfg.Angle, "text angle in `degrees`")
	flag.Float64Var(&cfg.HorizontalGap, "gap", cfg.HorizontalGap, "horizontal `distance` between copies of the text")
	flag.Float64Var(&cfg.VerticalMultiplier, "rows", cfg.VerticalMultiplier, "row distance as a `multiple` of the point size")
	flag.Float64Var(&cfg.CoverageMultiplier, "coverage", cfg.CoverageMultiplier, "grid extent as a `multiple` of the page diagonal")
	flag.Float64Var(&cfg.CenterOffset.X, "offset-x", cfg.CenterOffset.X, "horizontal `offset` of the grid center")
	flag.Float64Var(&cfg.CenterOffset.Y, "offset-y", cfg.CenterOffset.Y, "vertical `offset` of the grid center")
	flag.Float64Var(&cfg.RowOverscan, "overscan", cfg.RowOverscan, "extra `length` of the grid before the first row")
	flag.Float64Var(&cfg.VisibilityMargin, "margin", cfg.VisibilityMargin, "keep copies up to this `distance` outside the page")
	flag.IntVar(&cfg.MaxInstances, "max", cfg.MaxInstances, "maximal `number` of grid positions per page")
	flag.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "`opacity` of the text")
	flag.Float64Var(&cfg.Gray, "gray", cfg.Gray, "gray `level` of the text")
	flag.IntVar(&cfg.FontIndex, "index", cfg.FontIndex, "`index` of the font in a font collection")
	flag.Func("resource", "resource `name` of the watermark (default "+string(cfg.ResourceName)+")",
		func(s string) error {
			cfg.ResourceName = pdf.Name(s)
			return nil
		})
	flag.Func("bbox", "minimal bounding box `llx,lly,urx,ury` of the watermark (default "+formatBox(cfg.BBox)+")",
		func(s string) error {
			box, err := parseBox(s)
			if err != nil {
				return err
			}
			cfg.BBox = box
			return nil
		})
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: add a tiled text watermark to a PDF file\n", tool)
		fmt.Fprintf(os.Stderr, "%s\n\n", buildinfo.Banner(tool))
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options] -font <font> <in.pdf> [out.pdf]\n\n", tool)
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  in.pdf    the file to watermark\n")
		fmt.Fprintf(os.Stderr, "  out.pdf   the output file (default <in>_watermarked.pdf)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -font NotoSansSC.otf -name Alice report.pdf\n", tool)
		fmt.Fprintf(os.Stderr, "  %s -font Go-Regular.ttf -text DRAFT -alpha 0.2 in.pdf out.pdf\n", tool)
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 || *fontArg == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	prof, err := profile.Start(*cpuprofile, *memprofile)
	if err != nil {
		return err
	}
	defer func() {
		if err := prof.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	watermark.SetLogger(newLogger(*verbose))

	text := *textArg
	if text == "" {
		if *nameArg == "" {
			return errors.New("either -text or -name is required")
		}
		text = watermark.ComposeText(*nameArg, *dateArg)
	}

	in := flag.Arg(0)
	out := flag.Arg(1)
	if out == "" {
		out = defaultOutput(in)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := watermark.Run(ctx, in, out, *fontArg, text, cfg)
	if err != nil {
		return err
	}

	if len(res.Skipped) > 0 {
		pages := make([]string, len(res.Skipped))
		for i, p := range res.Skipped {
			pages[i] = strconv.Itoa(p)
		}
		fmt.Fprintf(os.Stderr, "warning: %d of %d pages skipped: %s\n",
			len(res.Skipped), res.Pages, strings.Join(pages, ", "))
	}
	fmt.Printf("%s: %d pages watermarked, %d copies\n",
		res.Output, res.Watermarked, res.Instances)
	return nil
}

// newLogger returns a text logger on stderr.  When stderr is a terminal,
// the time stamps are left out.
func newLogger(debug bool) *slog.Logger {
	opt := &slog.HandlerOptions{Level: slog.LevelWarn}
	if debug {
		opt.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		opt.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opt))
}

// defaultOutput returns the output file name used when none is given on
// the command line.
func defaultOutput(in string) string {
	dir, base := filepath.Split(in)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_watermarked.pdf")
}

func parseBox(s string) (pdf.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pdf.Rectangle{}, fmt.Errorf("invalid box %q: need four numbers", s)
	}
	var x [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return pdf.Rectangle{}, fmt.Errorf("invalid box %q: %w", s, err)
		}
		x[i] = v
	}
	return pdf.Rectangle{LLx: x[0], LLy: x[1], URx: x[2], URy: x[3]}, nil
}

func formatBox(r pdf.Rectangle) string {
	var parts []string
	for _, x := range []float64{r.LLx, r.LLy, r.URx, r.URy} {
		parts = append(parts, strconv.FormatFloat(x, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
