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

// Package profile writes CPU and memory profiles for the command line tools.
package profile

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

// Session is an active profiling session.
type Session struct {
	cpu     *os.File
	memName string
}

// Start begins CPU profiling, if cpuName is non-empty.  When the session is
// stopped, a memory profile is written to memName, if non-empty.
func Start(cpuName, memName string) (*Session, error) {
	s := &Session{memName: memName}
	if cpuName == "" {
		return s, nil
	}

	f, err := os.Create(cpuName)
	if err != nil {
		return nil, fmt.Errorf("cannot create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot start CPU profile: %w", err)
	}
	s.cpu = f
	return s, nil
}

// Stop ends the session.  It is safe to call Stop more than once.
func (s *Session) Stop() error {
	var errs []error
	if s.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpu.Close())
		s.cpu = nil
	}
	if s.memName != "" {
		errs = append(errs, writeHeap(s.memName))
		s.memName = ""
	}
	return errors.Join(errs...)
}

func writeHeap(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("cannot create memory profile: %w", err)
	}
	runtime.GC()
	allocs := pprof.Lookup("allocs")
	if allocs == nil {
		f.Close()
		return errors.New("allocation profile not available")
	}
	if err := allocs.WriteTo(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("cannot write memory profile: %w", err)
	}
	return f.Close()
}
