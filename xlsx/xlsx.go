// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx streams worksheet rows out of and into Office Open XML
// workbooks. Both directions are bounded in memory by the widest row
// and the longest string, not by file size: shared strings live in a
// disk-backed index, the worksheet body is generated into a scratch
// file, and the archive parts are streamed.
package xlsx

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/UNO-SOFT/xlsxcsv"
)

// Converter converts between XLSX workbooks and CSV files. The zero
// value is usable. Conversions are self-contained: distinct
// Converters (or one Converter on disjoint paths) may run
// concurrently.
type Converter struct {
	// ProjectRoot bounds where input and output files may live,
	// besides the system temp directory. Empty means the current
	// working directory.
	ProjectRoot string
	// TempDir overrides the scratch file directory.
	TempDir string
	// CSV adjusts how CSV input is interpreted.
	CSV xlsxcsv.ReadOptions
	// CheckPath replaces the default sandboxing policy.
	CheckPath xlsxcsv.PathCheck
	// Logger receives diagnostics; nil means slog.Default().
	Logger *slog.Logger
}

func (cv *Converter) logger() *slog.Logger {
	if cv.Logger != nil {
		return cv.Logger
	}
	return slog.Default()
}

func (cv *Converter) checkPath(path string, output bool) (string, error) {
	check := cv.CheckPath
	if check == nil {
		check = xlsxcsv.DefaultPathCheck(cv.ProjectRoot)
	}
	return check(path, output)
}

// ToCSV converts the first worksheet of the src workbook into a CSV
// file at dst, comma-separated with LF line endings. Sheet rows with
// gaps between their declared numbers come out as blank lines, so CSV
// line N is sheet row N. On any failure dst is removed: the caller
// sees all or nothing.
func (cv *Converter) ToCSV(ctx context.Context, src, dst string) (err error) {
	if src, err = cv.checkPath(src, false); err != nil {
		return err
	}
	if dst, err = cv.checkPath(dst, true); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
			cv.logger().Error("xlsx to csv", "src", src, "dst", dst, "error", err)
		}
	}()

	a, err := OpenArchive(src)
	if err != nil {
		return err
	}
	defer a.Close()
	sheetPath, err := a.Worksheet()
	if err != nil {
		return err
	}
	sst, err := a.StringStore(cv.TempDir)
	if err != nil {
		return err
	}
	defer sst.Release()
	rc, err := a.open(sheetPath)
	if err != nil {
		return err
	}
	defer rc.Close()
	cv.logger().Debug("streaming worksheet", "sheet", sheetPath, "sharedStrings", sst.Count())

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%q: %w", dst, xlsxcsv.ErrIO)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%q: %w", dst, xlsxcsv.ErrWriteFailed)
		}
	}()

	bw := bufio.NewWriterSize(out, 1<<20)
	cw := csv.NewWriter(bw)
	rr := NewRowReader(rc, sst)
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		row, rerr := rr.Next()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
		if err = cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", xlsxcsv.ErrWriteFailed)
		}
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", xlsxcsv.ErrWriteFailed)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", xlsxcsv.ErrWriteFailed)
	}
	return nil
}

// FromCSV converts the CSV file at src into a single-sheet workbook
// at dst. The delimiter is detected from the first non-blank line;
// every value is written as an inline string. The worksheet body is
// generated into a scratch file first, then packaged, so dst is never
// observed half-written. On any failure dst is removed.
func (cv *Converter) FromCSV(ctx context.Context, src, dst string) (err error) {
	if src, err = cv.checkPath(src, false); err != nil {
		return err
	}
	if dst, err = cv.checkPath(dst, true); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
			cv.logger().Error("csv to xlsx", "src", src, "dst", dst, "error", err)
		}
	}()

	cr, err := xlsxcsv.OpenCsv(src, cv.CSV)
	if err != nil {
		return err
	}
	defer cr.Close()
	cv.logger().Debug("streaming csv", "src", src, "delimiter", string(cr.Comma))

	tmp, err := xlsxcsv.NewTempFile(cv.TempDir, "sheet-")
	if err != nil {
		return err
	}
	defer tmp.Release()

	bw := bufio.NewWriterSize(tmp.File, 1<<20)
	sw := NewSheetWriter(bw)
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		rec, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%q: %w", src, xlsxcsv.ErrIO)
		}
		if err = sw.WriteRow(rec); err != nil {
			return err
		}
	}
	if err = sw.Close(); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", xlsxcsv.ErrWriteFailed)
	}
	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind sheet: %w", xlsxcsv.ErrIO)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%q: %w", dst, xlsxcsv.ErrIO)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%q: %w", dst, xlsxcsv.ErrWriteFailed)
		}
	}()
	return WritePackage(out, bufio.NewReaderSize(tmp.File, 1<<20))
}
