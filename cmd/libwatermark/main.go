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

// Libwatermark exposes the watermark engine as a C shared library.
//
// Build with
//
//	go build -buildmode=c-shared -o libwatermark.so ./cmd/libwatermark
//
// The library exports a single function:
//
//	int add_pdf_watermark(const char *input, const char *output,
//	                      const char *font, const char *name,
//	                      const char *date);
//
// All strings must be UTF-8 encoded.  The watermark text is composed from
// the recipient name and the date.  The return value is 0 on success, -1 if
// the file could not be watermarked, and -2 if one of the arguments is NULL
// or not valid UTF-8.
package main

/*
#include <stddef.h>
*/
import "C"

import (
	"context"
	"unicode/utf8"

	"seehuhn.de/go/watermark"
)

const (
	codeOK      = 0
	codeFailed  = -1
	codeInvalid = -2
)

//export add_pdf_watermark
func add_pdf_watermark(input, output, font, name, date *C.char) C.int {
	var args [5]string
	for i, p := range []*C.char{input, output, font, name, date} {
		if p == nil {
			return codeInvalid
		}
		args[i] = C.GoString(p)
	}
	return C.int(addWatermark(args[0], args[1], args[2], args[3], args[4]))
}

func addWatermark(in, out, font, name, date string) int {
	for _, s := range []string{in, out, font, name, date} {
		if !utf8.ValidString(s) {
			return codeInvalid
		}
	}

	text := watermark.ComposeText(name, date)
	_, err := watermark.Run(context.Background(), in, out, font, text, nil)
	if err != nil {
		watermark.Logger().Error("watermarking failed",
			"input", in,
			"error", err)
		return codeFailed
	}
	return codeOK
}

func main() {}
