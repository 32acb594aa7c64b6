// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxcsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	}
	if EncName == "" {
		EncName = "utf-8"
	}
}

func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, ErrEncoding)
	}
	return enc, err
}

// Delimiters is the candidate list DetectDelimiter tries, in order.
// On a tie the earlier candidate wins.
var Delimiters = []rune{',', ';', '\t', '|'}

const bom = "\xEF\xBB\xBF"

// DetectDelimiter scans r for the first non-blank line (a leading BOM
// is ignored), splits it with each candidate delimiter under standard
// CSV quoting, and returns the candidate producing the most fields.
// A file with no non-blank line yields ','. r is rewound to offset 0
// before returning.
func DetectDelimiter(r io.ReadSeeker) (rune, error) {
	br := bufio.NewReader(r)
	var line string
	first := true
	for {
		s, err := br.ReadString('\n')
		if first {
			s = strings.TrimPrefix(s, bom)
			first = false
		}
		if strings.TrimSpace(s) != "" {
			line = strings.TrimRight(s, "\r\n")
			break
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("scan delimiter: %w", ErrIO)
		}
	}
	sep, best := ',', 0
	for _, cand := range Delimiters {
		if n := countFields(line, cand); n > best {
			sep, best = cand, n
		}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind: %w", ErrIO)
	}
	return sep, nil
}

func countFields(line string, sep rune) int {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	rec, err := cr.Read()
	if err != nil {
		return 1
	}
	return len(rec)
}

// ReadOptions adjust how OpenCsv interprets the input.
type ReadOptions struct {
	// Charset names the input encoding; empty means UTF-8.
	Charset string
	// BackslashEscapes additionally treats backslash as an escape
	// character, normalizing \" and \\ before CSV parsing. Off by
	// default: plain RFC 4180 double-quote doubling.
	BackslashEscapes bool
}

type CsvReadCloser struct {
	*csv.Reader
	io.Closer
}

// OpenCsv opens the named file for CSV reading with the delimiter
// detected from its first non-blank line. The reader accepts LF and
// CRLF line endings and rows of varying width.
func OpenCsv(fn string, opts ReadOptions) (CsvReadCloser, error) {
	enc, err := GetEncoding(opts.Charset)
	if err != nil {
		return CsvReadCloser{}, err
	}
	fh, err := os.Open(fn)
	if err != nil {
		return CsvReadCloser{}, fmt.Errorf("%q: %w", fn, ErrIO)
	}
	sep, err := DetectDelimiter(fh)
	if err != nil {
		fh.Close()
		return CsvReadCloser{}, fmt.Errorf("%q: %w", fn, err)
	}
	r := io.Reader(fh)
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}
	if opts.BackslashEscapes {
		r = &escapeNormalizer{br: bufio.NewReader(r)}
	}
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.ReuseRecord = true
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return CsvReadCloser{cr, fh}, nil
}

// escapeNormalizer rewrites backslash escapes into RFC 4180 quoting:
// \" becomes "" and \\ becomes \. Other bytes pass through.
type escapeNormalizer struct {
	br      *bufio.Reader
	pending byte
}

func (e *escapeNormalizer) Read(p []byte) (int, error) {
	var n int
	for n < len(p) {
		if e.pending != 0 {
			p[n] = e.pending
			e.pending = 0
			n++
			continue
		}
		b, err := e.br.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if b != '\\' {
			p[n] = b
			n++
			continue
		}
		nb, err := e.br.ReadByte()
		if err != nil {
			p[n] = b
			n++
			return n, nil
		}
		switch nb {
		case '"':
			p[n] = '"'
			e.pending = '"'
		case '\\':
			p[n] = '\\'
		default:
			p[n] = b
			e.pending = nb
		}
		n++
	}
	return n, nil
}
