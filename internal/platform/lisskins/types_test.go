package lisskins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkosilov/skinsbot/internal/domain"
)

func TestCollapseListingsKeepsMinimumPrice(t *testing.T) {
	items := []exportItem{
		{ID: 1, Name: "AK-47 | Redline (Field-Tested)", Price: 12.50},
		{ID: 2, Name: "AK-47 | Redline (Field-Tested)", Price: 11.20},
		{ID: 3, Name: "AK-47 | Redline (Field-Tested)", Price: 13.00},
		{ID: 4, Name: "Glock-18 | Fade", Price: 250.00},
	}

	out := collapseListings(items)
	require.Len(t, out, 2)

	ak := out["AK-47 | Redline (Field-Tested)"]
	assert.Equal(t, 11.20, ak.MinPrice)
	// The listing id must track the cheapest offer, not the first one seen.
	assert.Equal(t, "2", ak.ListingID)

	assert.Equal(t, 250.00, out["Glock-18 | Fade"].MinPrice)
}

func TestCollapseListingsSkipsUnnamedEntries(t *testing.T) {
	items := []exportItem{
		{ID: 1, Name: "", Price: 5.00},
		{ID: 2, Name: "P250 | Sand Dune", Price: 0.10},
	}

	out := collapseListings(items)
	require.Len(t, out, 1)
	assert.Contains(t, out, "P250 | Sand Dune")
}

func TestHandleMessageDispatchesSkinEvents(t *testing.T) {
	w := NewWSClient("")

	var got []domain.SkinEvent
	w.OnSkinEvent(func(e domain.SkinEvent) { got = append(got, e) })

	// Handshake reply: no result payload, must be ignored.
	w.handleMessage([]byte(`{"id":1,"result":{}}`))

	// Publication from another channel: ignored.
	w.handleMessage([]byte(`{"result":{"channel":"public:other","data":{"event":"x","data":{"id":1,"name":"n","price":1}}}}`))

	// Real obtained-skin event.
	w.handleMessage([]byte(`{"result":{"channel":"public:obtained-skins","data":{"event":"obtained_skin_added","data":{"id":987,"name":"AWP | Asiimov (Field-Tested)","price":64.30}}}}`))

	require.Len(t, got, 1)
	assert.Equal(t, domain.EventSkinAdded, got[0].Event)
	assert.Equal(t, "987", got[0].ID)
	assert.Equal(t, "AWP | Asiimov (Field-Tested)", got[0].Name)
	assert.Equal(t, 64.30, got[0].Price)
}
