// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/UNO-SOFT/xlsxcsv"
)

// Archive is an opened workbook container.
type Archive struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

func OpenArchive(fn string) (*Archive, error) {
	zr, err := zip.OpenReader(fn)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", fn, xlsxcsv.ErrArchive)
	}
	a := &Archive{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		a.files[f.Name] = f
	}
	return a, nil
}

func (a *Archive) Close() error { return a.zr.Close() }

// file finds an entry by path, falling back to a case-insensitive
// scan (such archives exist in the wild).
func (a *Archive) file(name string) *zip.File {
	if f, ok := a.files[name]; ok {
		return f
	}
	for n, f := range a.files {
		if strings.EqualFold(n, name) {
			return f
		}
	}
	return nil
}

func (a *Archive) open(name string) (io.ReadCloser, error) {
	f := a.file(name)
	if f == nil {
		return nil, fmt.Errorf("%q: %w", name, xlsxcsv.ErrArchive)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, xlsxcsv.ErrArchive)
	}
	return rc, nil
}

var worksheetRE = regexp.MustCompile(`(?i)^xl/worksheets/[^/]+\.xml$`)

// Worksheet returns the archive path of the workbook's first
// worksheet: the sheet the workbook declares first, resolved through
// the relationships part. Archives with a broken workbook or rels
// part fall back to the lexicographically first xl/worksheets entry.
func (a *Archive) Worksheet() (string, error) {
	if target := a.relatedWorksheet(); target != "" && a.file(target) != nil {
		return target, nil
	}
	var names []string
	for n := range a.files {
		if worksheetRE.MatchString(n) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no worksheet entry: %w", xlsxcsv.ErrSheetNotFound)
	}
	sort.Strings(names)
	return names[0], nil
}

func (a *Archive) relatedWorksheet() string {
	rid := a.firstSheetID()
	if rid == "" {
		return ""
	}
	target := a.relTarget(rid)
	if target == "" {
		return ""
	}
	target = strings.ReplaceAll(target, `\`, "/")
	target = strings.TrimPrefix(target, "/")
	if !strings.HasPrefix(target, "xl/") {
		target = "xl/" + target
	}
	return target
}

// firstSheetID scans xl/workbook.xml for the first <sheet> element
// and returns its relationship id. Matching is by local name, so any
// namespace prefix works.
func (a *Archive) firstSheetID() string {
	rc, err := a.open("xl/workbook.xml")
	if err != nil {
		return ""
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		for _, at := range se.Attr {
			if at.Name.Local == "id" {
				return at.Value
			}
		}
		return ""
	}
}

// relTarget scans xl/_rels/workbook.xml.rels for the Relationship
// with the given Id and returns its Target.
func (a *Archive) relTarget(rid string) string {
	rc, err := a.open("xl/_rels/workbook.xml.rels")
	if err != nil {
		return ""
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, at := range se.Attr {
			switch at.Name.Local {
			case "Id":
				id = at.Value
			case "Target":
				target = at.Value
			}
		}
		if id == rid {
			return target
		}
	}
}

// StringStore builds the disk-backed shared-string store from the
// archive's sharedStrings part. Archives without one get a nil store,
// which resolves every lookup to "".
func (a *Archive) StringStore(tempDir string) (*StringStore, error) {
	f := a.file("xl/sharedStrings.xml")
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("sharedStrings: %w", xlsxcsv.ErrArchive)
	}
	defer rc.Close()
	return BuildStringStore(rc, tempDir)
}

// RowReader streams dense rows out of a worksheet XML stream,
// resolving shared-string, boolean and inline-string cells. Rows come
// out gap-filled: when the sheet skips row numbers the reader yields
// empty rows in between, so output row N is sheet row N.
type RowReader struct {
	dec     *xml.Decoder
	sst     *StringStore
	next    int // next row number to hand out, 1-based
	gap     int // empty rows still owed before pending
	pending []string
	done    bool
}

func NewRowReader(r io.Reader, sst *StringStore) *RowReader {
	return &RowReader{dec: xml.NewDecoder(r), sst: sst, next: 1}
}

// Next returns the next dense row; empty rows come back nil. The
// stream ends with io.EOF.
func (rr *RowReader) Next() ([]string, error) {
	if rr.gap > 0 {
		rr.gap--
		rr.next++
		return nil, nil
	}
	if rr.pending != nil {
		row := rr.pending
		rr.pending = nil
		rr.next++
		if len(row) == 0 {
			row = nil
		}
		return row, nil
	}
	if rr.done {
		return nil, io.EOF
	}
	declared, row, err := rr.scanRow()
	if err != nil {
		if err == io.EOF {
			rr.done = true
		}
		return nil, err
	}
	if declared < rr.next {
		declared = rr.next
	}
	if declared > rr.next {
		rr.pending = row
		if row == nil {
			rr.pending = []string{} // an empty row is owed too
		}
		rr.gap = declared - rr.next - 1
		rr.next++
		return nil, nil
	}
	rr.next++
	return row, nil
}

// scanRow consumes the next <row> element and returns its declared
// row number (0 when the r attribute is absent or non-positive) and
// its dense cell values.
func (rr *RowReader) scanRow() (int, []string, error) {
	var start xml.StartElement
	for {
		tok, err := rr.dec.Token()
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		if err != nil {
			return 0, nil, fmt.Errorf("worksheet: %w", xlsxcsv.ErrXMLMalformed)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		start = se
		break
	}
	var declared int
	for _, at := range start.Attr {
		if at.Name.Local == "r" {
			if n, err := strconv.Atoi(strings.TrimSpace(at.Value)); err == nil && n > 0 {
				declared = n
			}
		}
	}

	var cells map[int]string
	maxCol, curCol := 0, 1
	depth := 1
	for depth > 0 {
		tok, err := rr.dec.Token()
		if err != nil {
			return 0, nil, fmt.Errorf("worksheet row: %w", xlsxcsv.ErrXMLMalformed)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "c" {
				depth++
				continue
			}
			col, val, err := rr.readCell(t)
			if err != nil {
				return 0, nil, err
			}
			if col < 1 {
				col = curCol
			}
			curCol = col + 1
			if cells == nil {
				cells = make(map[int]string)
			}
			cells[col] = val
			if col > maxCol {
				maxCol = col
			}
		case xml.EndElement:
			depth--
		}
	}
	if maxCol == 0 {
		return declared, nil, nil
	}
	row := make([]string, maxCol)
	for col, val := range cells {
		row[col-1] = val
	}
	return declared, row, nil
}

// readCell consumes a <c> element (start already read) through its
// matching end tag, concatenating <v> and <t> text at any depth, and
// applies the cell type rules: t="s" resolves a shared-string index,
// t="b" maps "1" to TRUE and anything else to FALSE, everything else
// is the literal text.
func (rr *RowReader) readCell(start xml.StartElement) (int, string, error) {
	var ref, typ string
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "r":
			ref = at.Value
		case "t":
			typ = at.Value
		}
	}
	col, _ := xlsxcsv.ParseCellRef(ref)

	var text strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := rr.dec.Token()
		if err != nil {
			return 0, "", fmt.Errorf("worksheet cell: %w", xlsxcsv.ErrXMLMalformed)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "v", "t":
				var s string
				if err := rr.dec.DecodeElement(&s, &t); err != nil {
					return 0, "", fmt.Errorf("worksheet cell: %w", xlsxcsv.ErrXMLMalformed)
				}
				text.WriteString(s)
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	val := text.String()
	switch typ {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			val = ""
			break
		}
		if val, err = rr.sst.Lookup(idx); err != nil {
			return 0, "", err
		}
	case "b":
		if strings.TrimSpace(val) == "1" {
			val = "TRUE"
		} else {
			val = "FALSE"
		}
	}
	return col, val, nil
}
