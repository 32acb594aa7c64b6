// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bufio"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UNO-SOFT/xlsxcsv"
)

// The store is two scratch files. The data file concatenates
// <u32 big-endian length><UTF-8 bytes> records; the index file holds
// one fixed-width record per string: 20 ASCII digits of data-file
// offset and a trailing '\n', exactly indexRecordLen bytes. The fixed
// width is what makes ReadAt(i*indexRecordLen) random access work.
const indexRecordLen = 21

// StringStore is a disk-backed shared-string table with O(1) lookup
// by index. The strings are never held in memory in aggregate. A nil
// store is legal and resolves every lookup to "".
type StringStore struct {
	data, index *xlsxcsv.TempFile
	count       int
}

// BuildStringStore streams shared-string XML into a fresh store. The
// text of each <si> is the concatenation of all its <t> descendants,
// which subsumes rich-text runs.
func BuildStringStore(r io.Reader, tempDir string) (st *StringStore, err error) {
	store := &StringStore{}
	st = store
	defer func() {
		if err != nil {
			store.Release()
		}
	}()
	if st.data, err = xlsxcsv.NewTempFile(tempDir, "sst-data-"); err != nil {
		return nil, err
	}
	if st.index, err = xlsxcsv.NewTempFile(tempDir, "sst-index-"); err != nil {
		return nil, err
	}
	dw := bufio.NewWriterSize(st.data.File, 1<<20)
	iw := bufio.NewWriterSize(st.index.File, 1<<16)

	dec := xml.NewDecoder(r)
	var off int64
	var cur strings.Builder
	inSI := false
	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return nil, fmt.Errorf("shared strings: %w", xlsxcsv.ErrXMLMalformed)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				cur.Reset()
			case "t":
				if !inSI {
					continue
				}
				var s string
				if err = dec.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("shared strings: %w", xlsxcsv.ErrXMLMalformed)
				}
				cur.WriteString(s)
			}
		case xml.EndElement:
			if t.Name.Local != "si" || !inSI {
				continue
			}
			inSI = false
			s := cur.String()
			if _, err = fmt.Fprintf(iw, "%020d\n", off); err != nil {
				return nil, fmt.Errorf("string index: %w", xlsxcsv.ErrWriteFailed)
			}
			var lb [4]byte
			binary.BigEndian.PutUint32(lb[:], uint32(len(s)))
			if _, err = dw.Write(lb[:]); err != nil {
				return nil, fmt.Errorf("string data: %w", xlsxcsv.ErrWriteFailed)
			}
			if _, err = dw.WriteString(s); err != nil {
				return nil, fmt.Errorf("string data: %w", xlsxcsv.ErrWriteFailed)
			}
			off += int64(4 + len(s))
			st.count++
		}
	}
	if err = dw.Flush(); err != nil {
		return nil, fmt.Errorf("string data: %w", xlsxcsv.ErrWriteFailed)
	}
	if err = iw.Flush(); err != nil {
		return nil, fmt.Errorf("string index: %w", xlsxcsv.ErrWriteFailed)
	}
	return st, nil
}

// Count returns the number of stored strings.
func (st *StringStore) Count() int {
	if st == nil {
		return 0
	}
	return st.count
}

// Lookup returns shared string i. Out-of-range indexes and short
// reads yield the empty string; only a broken handle is an error.
func (st *StringStore) Lookup(i int) (string, error) {
	if st == nil || i < 0 || i >= st.count {
		return "", nil
	}
	if st.index == nil || st.index.File == nil || st.data == nil || st.data.File == nil {
		return "", fmt.Errorf("string store released: %w", xlsxcsv.ErrIO)
	}
	var rec [indexRecordLen]byte
	if n, err := st.index.ReadAt(rec[:], int64(i)*indexRecordLen); n < len(rec) {
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("string index: %w", xlsxcsv.ErrIO)
		}
		return "", nil
	}
	off, err := strconv.ParseInt(string(rec[:20]), 10, 64)
	if err != nil {
		return "", nil
	}
	var lb [4]byte
	if n, err := st.data.ReadAt(lb[:], off); n < len(lb) {
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("string data: %w", xlsxcsv.ErrIO)
		}
		return "", nil
	}
	buf := make([]byte, binary.BigEndian.Uint32(lb[:]))
	if n, err := st.data.ReadAt(buf, off+4); n < len(buf) {
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("string data: %w", xlsxcsv.ErrIO)
		}
		return "", nil
	}
	return string(buf), nil
}

// Release removes both backing files. Safe on a nil store and safe to
// call more than once.
func (st *StringStore) Release() {
	if st == nil {
		return
	}
	st.index.Release()
	st.data.Release()
}
