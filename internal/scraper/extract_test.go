package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCardLive(t *testing.T) {
	page := newFakePage()
	sel := cardCountSelector
	page.attrs[key(sel, 0)+"#data-review-id"] = "live-1"
	page.descText[key(sel, 0)+"#div.d4r55"] = "Pedro Gómez"
	page.descAttr[key(sel, 0)+"#span.kvMYJc[role='img']#aria-label"] = "5 estrellas"
	page.descText[key(sel, 0)+"#span.rsqaWe"] = "hace 3 meses"
	page.descText[key(sel, 0)+"#.MyEned .wiI7pd"] = "Trato inmejorable"
	page.descAttrs[key(sel, 0)+"#button[data-photo-index][data-review-id]#style"] = []string{
		`background-image: url("https://img.example/a.jpg")`,
	}
	page.outerHTML[key(sel, 0)] = `<div data-review-id="live-1">` +
		`<span>Respuesta del propietario</span>` +
		`<span class="DZSIDd">hace 2 meses</span>` +
		`<span class="wiI7pd">Gracias, Pedro</span></div>`

	sess := NewSession(page, Config{})
	review, err := sess.extractCardLive(context.Background(), sel, 0)
	require.NoError(t, err)

	assert.Equal(t, "live-1", review.ReviewID)
	assert.Equal(t, "Pedro Gómez", review.Author)
	require.NotNil(t, review.Rating)
	assert.InDelta(t, 5.0, *review.Rating, 0.0001)
	assert.Equal(t, "hace 3 meses", review.RelativeTime)
	assert.Equal(t, "Trato inmejorable", review.Text)
	assert.Equal(t, []string{"https://img.example/a.jpg"}, review.Photos)
	require.NotNil(t, review.OwnerReply)
	assert.Equal(t, "Gracias, Pedro", review.OwnerReply.Text)
	assert.Equal(t, "hace 2 meses", review.OwnerReply.RelativeTime)
}

func TestExtractCardLiveAuthorFallsBackToCardLabel(t *testing.T) {
	page := newFakePage()
	sel := cardCountSelector
	page.attrs[key(sel, 0)+"#aria-label"] = "Reseña de Marta"

	sess := NewSession(page, Config{})
	review, err := sess.extractCardLive(context.Background(), sel, 0)
	require.Error(t, err) // rating, time, and text are missing
	assert.Equal(t, "Reseña de Marta", review.Author)
}
