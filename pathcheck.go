// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxcsv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PathCheck validates and canonicalizes a path before the conversion
// touches it. output distinguishes the file to be written from the
// file to be read. The returned path is the one the conversion uses.
type PathCheck func(path string, output bool) (string, error)

var schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// DefaultPathCheck is the standard sandboxing policy: no NUL bytes,
// URL-scheme wrappers or ".." components; after canonicalization the
// path must reside under projectRoot or the system temp directory.
// Input paths must name an existing readable regular file; output
// paths need an existing parent directory. Whether that directory is
// writable is not checked here.
func DefaultPathCheck(projectRoot string) PathCheck {
	return func(path string, output bool) (string, error) {
		if path == "" || strings.IndexByte(path, 0) >= 0 || schemeRE.MatchString(path) {
			return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
		}
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if part == ".." {
				return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
			}
		}
		if output {
			return checkOutput(projectRoot, path)
		}
		return checkInput(projectRoot, path)
	}
}

func checkInput(root, path string) (string, error) {
	canon, err := canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	if err = checkSandbox(root, canon); err != nil {
		return "", err
	}
	fi, err := os.Stat(canon)
	if err != nil || !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	fh, err := os.Open(canon)
	if err != nil {
		return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	fh.Close()
	return canon, nil
}

func checkOutput(root, path string) (string, error) {
	parent, err := canonicalize(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	fi, err := os.Stat(parent)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	canon := filepath.Join(parent, filepath.Base(path))
	if err = checkSandbox(root, canon); err != nil {
		return "", err
	}
	return canon, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return canon, nil
}

// checkSandbox requires path to lie under root or under the system
// temp directory.
func checkSandbox(root, path string) error {
	if root == "" {
		root = "."
	}
	for _, dir := range []string{root, os.TempDir()} {
		canon, err := canonicalize(dir)
		if err != nil {
			continue
		}
		if path == canon ||
			strings.HasPrefix(path, canon+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%q: outside sandbox: %w", path, ErrInvalidPath)
}
