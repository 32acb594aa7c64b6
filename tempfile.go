// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxcsv

import (
	"fmt"
	"os"
)

// TempPrefix starts the name of every scratch file the pipeline
// creates, so leftovers are attributable (and tests can assert there
// are none).
const TempPrefix = "xlsxcsv-"

// TempFile is a scoped lease on a scratch file: Release closes and
// removes it. Callers defer Release right after acquisition so the
// file disappears on every exit path.
type TempFile struct {
	*os.File
}

// NewTempFile creates a scratch file in dir (the system temp directory
// when dir is empty).
func NewTempFile(dir, pattern string) (*TempFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, TempPrefix+pattern)
	if err != nil {
		return nil, fmt.Errorf("scratch file in %q: %w", dir, ErrIO)
	}
	return &TempFile{File: f}, nil
}

// Release closes and removes the file. Safe on a nil lease and safe
// to call more than once.
func (t *TempFile) Release() {
	if t == nil || t.File == nil {
		return
	}
	name := t.File.Name()
	t.File.Close()
	t.File = nil
	os.Remove(name)
}
