package lisskins

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// steamAppID identifies CS2 on the Steam community market.
const steamAppID = 730

// ItemSlug converts a market hash name into the URL path segment used by
// lis-skins item pages: lowercase, separators and whitespace collapsed to
// single hyphens, decoration glyphs and punctuation dropped. The function is
// total and idempotent: applying it to its own output is a no-op.
func ItemSlug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "|", " ")
	s = strings.Join(strings.Fields(s), "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '.':
			b.WriteRune(r)
		}
	}

	// Dropping glyphs can leave empty segments ("★ karambit" → "-karambit");
	// collapse runs of hyphens and trim the ends so the slug stays stable.
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}

// ItemURL returns the lis-skins market page for an item.
func ItemURL(game, name string) string {
	return fmt.Sprintf("%s/market/%s/%s", DefaultExportBase, game, url.PathEscape(ItemSlug(name)))
}

// SteamMarketURL returns the Steam community market listing page for an
// item. Steam uses the raw market hash name, percent-encoded.
func SteamMarketURL(name string) string {
	return fmt.Sprintf("https://steamcommunity.com/market/listings/%d/%s", steamAppID, url.PathEscape(name))
}
