// Package payload normalizes the loosely-structured JSON documents returned
// by the external extractor and the target service's endpoints. Payloads vary
// by item type and endpoint dialect and are never assumed complete, so all
// access goes through extraction helpers that return optional typed values.
package payload

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawPayload is an opaque decoded JSON document.
type RawPayload map[string]interface{}

var (
	hashtagRE = regexp.MustCompile(`#(\w+)`)
	mentionRE = regexp.MustCompile(`@(\w+)`)
	numberRE  = regexp.MustCompile(`([0-9]+(?:[.,][0-9]+)?)`)
)

// sentinel strings that decode to "absent" rather than zero
var numberSentinels = map[string]bool{
	"": true, "none": true, "null": true, "n/a": true, "na": true, "nan": true,
}

var magnitudeSuffixes = map[byte]float64{
	'k': 1e3,
	'm': 1e6,
	'b': 1e9,
}

// String returns the value under key if it is a non-empty string.
func (p RawPayload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Map returns the value under key if it is a nested object.
func (p RawPayload) Map(key string) RawPayload {
	if v, ok := p[key].(map[string]interface{}); ok {
		return RawPayload(v)
	}
	return nil
}

// List returns the value under key if it is an array.
func (p RawPayload) List(key string) []interface{} {
	if v, ok := p[key].([]interface{}); ok {
		return v
	}
	return nil
}

// Int decodes the value under key via DecodeInt.
func (p RawPayload) Int(key string) *int64 {
	return DecodeInt(p[key])
}

// Float returns the value under key if it is numeric.
func (p RawPayload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// DecodeInt converts a heterogeneous numeric value to an integer. Accepts
// integers, floats, booleans, and strings with thousands separators and
// magnitude suffixes (k, m, b). Sentinel strings and anything unparsable
// decode to nil.
func DecodeInt(value interface{}) *int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		n := int64(0)
		if v {
			n = 1
		}
		return &n
	case int:
		n := int64(v)
		return &n
	case int64:
		return &v
	case float64:
		n := int64(v)
		return &n
	case string:
		return decodeNumberString(v)
	}
	return nil
}

func decodeNumberString(raw string) *int64 {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if numberSentinels[cleaned] {
		return nil
	}

	multiplier := 1.0
	if mult, ok := magnitudeSuffixes[cleaned[len(cleaned)-1]]; ok {
		multiplier = mult
		cleaned = cleaned[:len(cleaned)-1]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	match := numberRE.FindStringSubmatch(cleaned)
	if match == nil {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return nil
	}

	n := int64(value * multiplier)
	return &n
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeTimestamp converts a heterogeneous timestamp value to a UTC instant.
// Accepts epoch numbers, 8-digit YYYYMMDD strings, and ISO-8601 strings;
// anything else decodes to nil.
func DecodeTimestamp(value interface{}) *time.Time {
	switch v := value.(type) {
	case float64:
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case int:
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case int64:
		t := time.Unix(v, 0).UTC()
		return &t
	case string:
		candidate := strings.TrimSpace(v)
		if len(candidate) == 8 && isDigits(candidate) {
			t, err := time.Parse("20060102", candidate)
			if err != nil {
				return nil
			}
			t = t.UTC()
			return &t
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// viewCountKeys is the ordered candidate list probed for a view count.
var viewCountKeys = []string{
	"view_count",
	"viewCount",
	"play_count",
	"playCount",
	"play_count_total",
	"view_count_pretty",
	"play_count_pretty",
	"interaction_count",
}

var statisticsViewKeys = []string{
	"view_count",
	"viewCount",
	"play_count",
	"playCount",
	"interaction_count",
}

// ViewCount probes the ordered candidate field names, falling back to a
// nested statistics sub-object.
func (p RawPayload) ViewCount() *int64 {
	for _, key := range viewCountKeys {
		if n := DecodeInt(p[key]); n != nil {
			return n
		}
	}
	if stats := p.Map("statistics"); stats != nil {
		for _, key := range statisticsViewKeys {
			if n := DecodeInt(stats[key]); n != nil {
				return n
			}
		}
	}
	return nil
}

// SelectVideoURL picks the best playable URL: a direct url field, else the
// highest-resolution entry in the formats list, else any URL or manifest from
// the first format, else the page URL.
func (p RawPayload) SelectVideoURL() string {
	if url := p.String("url"); url != "" {
		return url
	}

	formats := p.List("formats")
	var usable []RawPayload
	for _, entry := range formats {
		if m, ok := entry.(map[string]interface{}); ok {
			fmtMap := RawPayload(m)
			if _, ok := fmtMap.Float("height"); ok {
				usable = append(usable, fmtMap)
			}
		}
	}
	sort.SliceStable(usable, func(i, j int) bool {
		hi, _ := usable[i].Float("height")
		hj, _ := usable[j].Float("height")
		return hi > hj
	})
	if len(usable) > 0 {
		if url := formatURL(usable[0]); url != "" {
			return url
		}
	}

	if len(formats) > 0 {
		if m, ok := formats[0].(map[string]interface{}); ok {
			if url := formatURL(RawPayload(m)); url != "" {
				return url
			}
		}
	}

	return p.String("webpage_url")
}

func formatURL(format RawPayload) string {
	if url := format.String("url"); url != "" {
		return url
	}
	return format.String("manifest_url")
}

// Hashtags extracts #tags from a caption via word-boundary token scans.
// Order is preserved and repeats are kept.
func Hashtags(text string) []string {
	return collectTags(text, hashtagRE)
}

// Mentions extracts @mentions from a caption.
func Mentions(text string) []string {
	return collectTags(text, mentionRE)
}

func collectTags(text string, pattern *regexp.Regexp) []string {
	if text == "" {
		return nil
	}
	var tags []string
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		tags = append(tags, match[1])
	}
	return tags
}
