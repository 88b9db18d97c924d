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

// Package buildinfo reports the version of the running binary.
package buildinfo

import (
	"runtime/debug"
)

// Version describes the build of the running binary.
type Version struct {
	Module   string // main module path
	Version  string // module version, or a VCS revision
	Modified bool   // the working tree had local changes
}

// Read returns the version information embedded by the Go toolchain.  The
// second return value is false if no information is available.
func Read() (Version, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version{}, false
	}
	return fromInfo(info)
}

func fromInfo(info *debug.BuildInfo) (Version, bool) {
	v := Version{Module: info.Main.Path}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		v.Version = mv
		return v, true
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Version = s.Value
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	if v.Version == "" {
		return v, false
	}
	if len(v.Version) > 8 {
		v.Version = v.Version[:8]
	}
	return v, true
}

// String formats the version as "module version", with a "+dirty" suffix
// for modified trees.
func (v Version) String() string {
	s := v.Module + " " + v.Version
	if v.Modified {
		s += "+dirty"
	}
	return s
}

// Banner returns a one-line description of a tool for usage messages,
// e.g. "pdf-watermark (seehuhn.de/go/watermark v0.1.0)".
func Banner(tool string) string {
	v, ok := Read()
	if !ok {
		return tool
	}
	return tool + " (" + v.String() + ")"
}
