package instagram

import (
	"fmt"
	"strings"
)

// shortcode alphabet: URL-safe base64 in positional order
const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ShortcodeToMediaPK derives the numeric media identifier from a shortcode.
// Only the first 11 characters carry the id; anything beyond is an opaque
// suffix. The computation is pure and deterministic.
func ShortcodeToMediaPK(shortcode string) (int64, error) {
	if shortcode == "" {
		return 0, fmt.Errorf("empty shortcode")
	}

	if len(shortcode) > 11 {
		shortcode = shortcode[:11]
	}

	var pk int64
	for _, ch := range shortcode {
		index := strings.IndexRune(shortcodeAlphabet, ch)
		if index < 0 {
			return 0, fmt.Errorf("invalid shortcode character %q", ch)
		}
		pk = pk<<6 | int64(index)
	}

	return pk, nil
}
