// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// writeArchive builds a little test workbook at path from name→body
// pairs, in order.
func writeArchive(t *testing.T, path string, entries ...[2]string) {
	t.Helper()
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(fh)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		if err != nil {
			t.Fatal(err)
		}
		if _, err = w.Write([]byte(e[1])); err != nil {
			t.Fatal(err)
		}
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err = fh.Close(); err != nil {
		t.Fatal(err)
	}
}

const sheetDataHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`

func sheetXML(rows string) string {
	return sheetDataHeader + rows + `</sheetData></worksheet>`
}

func TestWorksheetViaRelationships(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wb.xlsx")
	writeArchive(t, fn,
		[2]string{"xl/workbook.xml", `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="Data" sheetId="1" r:id="rId7"/></sheets></workbook>`},
		[2]string{"xl/_rels/workbook.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/data.xml"/></Relationships>`},
		[2]string{"xl/worksheets/data.xml", sheetXML(``)},
		[2]string{"xl/worksheets/aaa.xml", sheetXML(``)},
	)
	a, err := OpenArchive(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	got, err := a.Worksheet()
	if err != nil {
		t.Fatal(err)
	}
	if got != "xl/worksheets/data.xml" {
		t.Errorf("Worksheet = %q, want the related target", got)
	}
}

func TestWorksheetTargetNormalization(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wb.xlsx")
	writeArchive(t, fn,
		[2]string{"xl/workbook.xml", `<workbook><sheets><sheet name="S" sheetId="1" id="rId1"/></sheets></workbook>`},
		[2]string{"xl/_rels/workbook.xml.rels", `<Relationships><Relationship Id="rId1" Target="\worksheets\s.xml"/></Relationships>`},
		[2]string{"xl/worksheets/s.xml", sheetXML(``)},
	)
	a, err := OpenArchive(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	got, err := a.Worksheet()
	if err != nil {
		t.Fatal(err)
	}
	if got != "xl/worksheets/s.xml" {
		t.Errorf("Worksheet = %q", got)
	}
}

func TestWorksheetFallbackScan(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wb.xlsx")
	// No workbook.xml at all: the directory scan decides.
	writeArchive(t, fn,
		[2]string{"xl/worksheets/sheet2.xml", sheetXML(``)},
		[2]string{"xl/worksheets/sheet1.xml", sheetXML(``)},
		[2]string{"xl/worksheets/notes/deep.xml", sheetXML(``)},
	)
	a, err := OpenArchive(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	got, err := a.Worksheet()
	if err != nil {
		t.Fatal(err)
	}
	if got != "xl/worksheets/sheet1.xml" {
		t.Errorf("Worksheet = %q, want lexicographically first", got)
	}
}

func TestWorksheetNone(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wb.xlsx")
	writeArchive(t, fn, [2]string{"xl/workbook.xml", `<workbook/>`})
	a, err := OpenArchive(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err = a.Worksheet(); err == nil {
		t.Error("expected error for archive without worksheets")
	}
}

func readAllRows(t *testing.T, rows string, sst *StringStore) [][]string {
	t.Helper()
	rr := NewRowReader(strings.NewReader(sheetXML(rows)), sst)
	var got [][]string
	for {
		row, err := rr.Next()
		if err == io.EOF {
			return got
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, row)
	}
}

func TestRowReaderSparse(t *testing.T) {
	got := readAllRows(t, `<row r="1"><c r="A1" t="inlineStr"><is><t>a</t></is></c><c r="B1" t="inlineStr"><is><t>b</t></is></c></row><row r="3"><c r="B3" t="inlineStr"><is><t>b3</t></is></c></row>`, nil)
	want := [][]string{{"a", "b"}, nil, {"", "b3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderBooleans(t *testing.T) {
	got := readAllRows(t, `<row r="1"><c r="A1" t="b"><v>1</v></c><c r="B1" t="b"><v>0</v></c></row>`, nil)
	want := [][]string{{"TRUE", "FALSE"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderSharedStrings(t *testing.T) {
	st, err := BuildStringStore(strings.NewReader(sstXML), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Release()
	got := readAllRows(t, `<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>2</v></c><c r="C1" t="s"><v>1</v></c></row>`, st)
	want := [][]string{{"foo", "baz ", "bar"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderMissingRefs(t *testing.T) {
	// No r attributes anywhere: rows and cells count themselves.
	got := readAllRows(t, `<row><c t="inlineStr"><is><t>x</t></is></c><c t="inlineStr"><is><t>y</t></is></c></row><row><c><v>3</v></c></row>`, nil)
	want := [][]string{{"x", "y"}, {"3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderExplicitColumnGap(t *testing.T) {
	// Cell addresses skip columns; the counter resumes after them.
	got := readAllRows(t, `<row r="1"><c r="C1" t="inlineStr"><is><t>c</t></is></c><c t="inlineStr"><is><t>d</t></is></c></row>`, nil)
	want := [][]string{{"", "", "c", "d"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderNumbersAndUnknownTypes(t *testing.T) {
	got := readAllRows(t, `<row r="1"><c r="A1"><v>3.14</v></c><c r="B1" t="str"><v>=SUM(1)</v></c><c r="C1"/></row>`, nil)
	want := [][]string{{"3.14", "=SUM(1)", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestRowReaderEmptySheet(t *testing.T) {
	if got := readAllRows(t, ``, nil); len(got) != 0 {
		t.Errorf("rows = %q, want none", got)
	}
}

func TestRowReaderBogusRowNumbers(t *testing.T) {
	// r="0" and a repeated smaller r both collapse to the running count.
	got := readAllRows(t, `<row r="0"><c><v>1</v></c></row><row r="1"><c><v>2</v></c></row>`, nil)
	want := [][]string{{"1"}, {"2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}
