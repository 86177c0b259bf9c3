package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"my_font", "my_font"},
		{"My-Font.zip", "My-Font.zip"},
		{"weird name!?", "weird_name__"},
		{"páscoa", "p_scoa"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SafeFilename(tt.input), "input=%q", tt.input)
	}
}
