package vfs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical returns the canonical form of a relative path: slash-separated,
// cleaned, and Unicode NFC-normalized. Two spellings of the same file name
// compare equal after Canonical, so merge decisions do not depend on how the
// filesystem reported the name.
func Canonical(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = path.Clean(rel)
	return norm.NFC.String(rel)
}

// Rel returns the canonical relative path of target under root.
func Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	rel = Canonical(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q escapes root %q", target, root)
	}
	return rel, nil
}

// Under reports whether canonical path rel equals dir or sits below it.
func Under(rel, dir string) bool {
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}
