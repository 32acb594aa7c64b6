// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsxcsv holds the shared pieces of the XLSX ↔ CSV converter:
// column reference arithmetic, XML text sanitization, CSV opening with
// delimiter detection, path validation and scoped temp files.
//
// The format-specific streaming reader and writer live in the xlsx
// subpackage.
package xlsxcsv

import "errors"

// The error kinds a conversion can fail with. Every failure returned
// by this module wraps exactly one of these, so callers can classify
// with errors.Is. The one exception is a conversion stopped by its
// context, which returns the context's error as is.
var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrIO            = errors.New("i/o failure")
	ErrArchive       = errors.New("archive failure")
	ErrXMLMalformed  = errors.New("malformed xml")
	ErrSheetNotFound = errors.New("sheet not found")
	ErrWriteFailed   = errors.New("write failed")
	ErrEncoding      = errors.New("encoding failure")
)
