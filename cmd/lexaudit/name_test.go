package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"benefits_act.txt", "benefits_act"},
		{"/data/docs/benefits_act.txt", "benefits_act"},
		{"benefits_act", "benefits_act"},
		{"archive.tar.gz", "archive.tar"},
		{".", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, documentNameFromPath(tt.path), tt.path)
	}
}
