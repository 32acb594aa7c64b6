// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxcsv

import (
	"testing"
	"unsafe"
)

func TestCleanXMLText(t *testing.T) {
	for _, tt := range []struct {
		name, in, want string
	}{
		{"plain", "hello", "hello"},
		{"empty", "", ""},
		{"keeps whitespace", "a\tb\nc\rd", "a\tb\nc\rd"},
		{"keeps unicode", "árvíztűrő 🎉", "árvíztűrő 🎉"},
		{"drops control", "a\x00b\x01c\x1Fd", "abcd"},
		{"drops fffe", "a\uFFFEb", "ab"},
		{"drops invalid utf8", "a\xFF\xFEb", "ab"},
		{"mixed", "ok\x00\xC0text", "oktext"},
	} {
		if got := CleanXMLText(tt.in); got != tt.want {
			t.Errorf("%s: CleanXMLText(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestCleanXMLTextNoCopy(t *testing.T) {
	s := "already clean"
	got := CleanXMLText(s)
	if got != s {
		t.Errorf("valid text altered: %q", got)
	}
	if unsafe.StringData(got) != unsafe.StringData(s) {
		t.Error("valid text was copied")
	}
}
