// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/UNO-SOFT/xlsxcsv"
)

const (
	sheetHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` + "\n"
	sheetFooter = `</sheetData></worksheet>`

	utf8BOM = "\xEF\xBB\xBF"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

// SheetWriter emits worksheet XML row by row as CSV records arrive.
// Rows are numbered sequentially from 1. Empty fields produce no cell
// at all, so the sheet stays sparse; non-empty values are sanitized,
// escaped and written as inline strings.
type SheetWriter struct {
	w       io.Writer
	buf     bytes.Buffer
	row     int
	started bool
}

func NewSheetWriter(w io.Writer) *SheetWriter { return &SheetWriter{w: w} }

// WriteRow appends one CSV record as a worksheet row. The very first
// field of the very first row has a leading UTF-8 BOM stripped.
func (sw *SheetWriter) WriteRow(fields []string) error {
	sw.buf.Reset()
	if !sw.started {
		sw.started = true
		sw.buf.WriteString(sheetHeader)
	}
	sw.row++
	fmt.Fprintf(&sw.buf, `<row r="%d">`, sw.row)
	for i, v := range fields {
		if sw.row == 1 && i == 0 {
			v = strings.TrimPrefix(v, utf8BOM)
		}
		if v == "" {
			continue
		}
		v = xmlEscaper.Replace(xlsxcsv.CleanXMLText(v))
		fmt.Fprintf(&sw.buf, `<c r="%s%d" t="inlineStr"><is><t xml:space="preserve">%s</t></is></c>`,
			xlsxcsv.NumberToLetters(i+1), sw.row, v)
	}
	sw.buf.WriteString("</row>\n")
	return writeAll(sw.w, sw.buf.Bytes())
}

// Close terminates the sheetData and worksheet elements. It does not
// close the underlying writer.
func (sw *SheetWriter) Close() error {
	sw.buf.Reset()
	if !sw.started {
		sw.started = true
		sw.buf.WriteString(sheetHeader)
	}
	sw.buf.WriteString(sheetFooter)
	return writeAll(sw.w, sw.buf.Bytes())
}

// writeAll retries with the remaining slice until b is fully written.
// A zero-byte write counts as failure, not progress.
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return fmt.Errorf("%w: %v", xlsxcsv.ErrWriteFailed, err)
		}
		if n == 0 {
			return xlsxcsv.ErrWriteFailed
		}
		b = b[n:]
	}
	return nil
}
