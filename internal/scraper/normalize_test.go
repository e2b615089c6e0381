package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"comma decimal", "4,5 estrellas", floatPtr(4.5)},
		{"dot decimal", "4.5 stars", floatPtr(4.5)},
		{"integer", "5 estrellas", floatPtr(5)},
		{"out of range", "7 stars", nil},
		{"empty", "", nil},
		{"no digits", "estrellas", nil},
		{"embedded in label", "Valoración: 3,0 de 5 estrellas", floatPtr(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRating(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 0.0001)
		})
	}
}

func TestParseTotalReviews(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"thousands separator", "1.234 reseñas", intPtr(1234)},
		{"prefers larger candidate", "3 fotos, 512 reseñas", intPtr(512)},
		{"single small number", "4 reseñas", intPtr(4)},
		{"empty", "", nil},
		{"no digits", "reseñas", nil},
		{"spaces inside run", "12 345 reseñas", intPtr(12345)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTotalReviews(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestIsProbableCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"plain category", "Cafetería", true},
		{"accent variant of blocked term", "Cómo llegar", false},
		{"action label", "Guardar", false},
		{"contains digits", "Planta 2", false},
		{"too long", "Restaurante de cocina mediterránea tradicional", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProbableCategory(tt.input))
		})
	}
}

func TestExtractStyleURLs(t *testing.T) {
	style := `background-image: url("https://img.example/a.jpg"); border-image: url('https://img.example/b.jpg')`
	assert.Equal(t,
		[]string{"https://img.example/a.jpg", "https://img.example/b.jpg"},
		extractStyleURLs(style))

	assert.Nil(t, extractStyleURLs(""))
	assert.Nil(t, extractStyleURLs("color: red"))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
