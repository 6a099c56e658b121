package main

import (
	"path/filepath"
	"strings"
)

// documentNameFromPath derives the report document name from the input path:
// base name without extension, empty falling back to "document".
func documentNameFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "document"
	}
	return name
}
