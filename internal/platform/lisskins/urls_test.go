package lisskins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemSlug(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"pipe separator", "AK-47 | Redline (Field-Tested)", "ak-47-redline-field-tested"},
		{"trademark glyph", "StatTrak™ AWP | Asiimov (Battle-Scarred)", "stattrak-awp-asiimov-battle-scarred"},
		{"star glyph", "★ Karambit | Doppler (Factory New)", "karambit-doppler-factory-new"},
		{"plain name", "Glock-18 | Fade", "glock-18-fade"},
		{"repeated whitespace", "AWP    |   Dragon  Lore", "awp-dragon-lore"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ItemSlug(tc.in))
		})
	}
}

func TestItemSlugIdempotent(t *testing.T) {
	names := []string{
		"AK-47 | Redline (Field-Tested)",
		"StatTrak™ M4A1-S | Hyper Beast (Minimal Wear)",
		"★ Butterfly Knife | Marble Fade",
	}
	for _, name := range names {
		once := ItemSlug(name)
		assert.Equal(t, once, ItemSlug(once), "slug of %q must be stable", name)
	}
}

func TestItemURL(t *testing.T) {
	got := ItemURL("csgo", "AK-47 | Redline (Field-Tested)")
	assert.Equal(t, "https://lis-skins.com/market/csgo/ak-47-redline-field-tested", got)
}

func TestSteamMarketURL(t *testing.T) {
	got := SteamMarketURL("AK-47 | Redline (Field-Tested)")
	assert.Equal(t, "https://steamcommunity.com/market/listings/730/AK-47%20%7C%20Redline%20%28Field-Tested%29", got)
}
