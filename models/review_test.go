package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestReviewIdentity(t *testing.T) {
	withID := Review{ReviewID: "ChZDSUhN", Author: "Ana"}
	assert.Equal(t, "ChZDSUhN", withID.Identity())

	noID := Review{Author: "Ana", Rating: floatPtr(4.5), Text: "Muy rico"}
	assert.NotEmpty(t, noID.Identity())
	assert.Equal(t, noID.Identity(), noID.Identity())

	other := Review{Author: "Ana", Rating: floatPtr(4.5), Text: "Muy malo"}
	assert.NotEqual(t, noID.Identity(), other.Identity())
}

func TestReviewFingerprint(t *testing.T) {
	r := Review{
		ReviewID:     "abc",
		Author:       "José",
		Rating:       floatPtr(4.5),
		RelativeTime: "hace 2 semanas",
		Text:         "Buenísimo",
	}

	fp := r.Fingerprint("cafe-central", "maps")
	assert.Len(t, fp, 40)
	assert.Equal(t, fp, r.Fingerprint("cafe-central", "maps"))

	// accent-insensitive on author and text
	plain := r
	plain.Author = "Jose"
	plain.Text = "Buenisimo"
	assert.Equal(t, fp, plain.Fingerprint("cafe-central", "maps"))

	// photos never influence identity
	withPhotos := r
	withPhotos.Photos = []string{"https://img.example/p1.jpg"}
	assert.Equal(t, fp, withPhotos.Fingerprint("cafe-central", "maps"))

	assert.NotEqual(t, fp, r.Fingerprint("other-bar", "maps"))
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("")
	assert.True(t, ok)
	assert.Equal(t, StrategyScrollCopy, s)

	s, ok = ParseStrategy("interactive")
	assert.True(t, ok)
	assert.Equal(t, StrategyInteractive, s)

	_, ok = ParseStrategy("bogus")
	assert.False(t, ok)
}
