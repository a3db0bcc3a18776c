package instagram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"reelscraper/pkg/errors"
)

// CanonicalURL is the normalized identity of a post/reel/tv item.
type CanonicalURL struct {
	Entity    string
	Shortcode string
	URL       string
}

var shortcodeRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// entity tokens recognized in URL paths; aliases normalize to canonical form
var entityTokens = map[string]string{
	"p":     "p",
	"reel":  "reel",
	"reels": "reel",
	"tv":    "tv",
}

// ParseMediaURL canonicalizes an arbitrary post/reel/tv URL. It scans the
// path segments for the first recognized entity token; the very next segment
// is the shortcode. Canonicalizing an already-canonical URL yields the same
// URL.
func ParseMediaURL(raw string) (*CanonicalURL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidURL, "malformed URL", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New(errors.KindInvalidURL, "URL must use http or https scheme")
	}

	var segments []string
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}

	for i, segment := range segments {
		entity, ok := entityTokens[strings.ToLower(segment)]
		if !ok {
			continue
		}
		if i+1 >= len(segments) {
			break
		}
		shortcode := segments[i+1]
		if !shortcodeRE.MatchString(shortcode) {
			return nil, errors.Newf(errors.KindInvalidURL, "invalid shortcode %q", shortcode)
		}
		return &CanonicalURL{
			Entity:    entity,
			Shortcode: shortcode,
			URL:       fmt.Sprintf("%s/%s/%s/", BaseURL, entity, shortcode),
		}, nil
	}

	return nil, errors.New(errors.KindInvalidURL, "unsupported media URL format")
}
