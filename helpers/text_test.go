package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses runs", "hace  2   semanas", "hace 2 semanas"},
		{"trims edges", "  Comida excelente  ", "Comida excelente"},
		{"newlines and tabs", "Muy\nbuen\tservicio", "Muy buen servicio"},
		{"empty", "", ""},
		{"only whitespace", "   \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips accents", "reseñas", "resenas"},
		{"lowercases", "Reseña", "resena"},
		{"mixed diacritics", "Veía el menú", "veia el menu"},
		{"ascii untouched", "reviews", "reviews"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestFoldContains(t *testing.T) {
	assert.True(t, FoldContains("512 Reseñas", "resenas"))
	assert.True(t, FoldContains("Owner Response", "response"))
	assert.False(t, FoldContains("3 fotos", "resenas"))
}
