package instagram

import (
	"strings"

	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
)

// metricsViewKeys is the ordered candidate list probed on the info endpoint
// media item.
var metricsViewKeys = []string{
	"view_count",
	"video_view_count",
	"play_count",
	"play_count_total",
	"view_count_pretty",
	"play_count_pretty",
}

// MetricsFetcher resolves view count, comment count, caption, audio
// attribution, and an owner profile stub with a single request to the
// per-item info endpoint.
type MetricsFetcher struct {
	client *Client
	logger logger.Logger
}

// NewMetricsFetcher creates a metrics fetcher on top of the shared client.
func NewMetricsFetcher(client *Client, log logger.Logger) *MetricsFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &MetricsFetcher{client: client, logger: log}
}

// FetchMediaDetails issues one info request for the shortcode. A non-2xx
// status yields an empty result, not an error; request construction,
// network, and decode failures are reported as view-fetch errors.
func (f *MetricsFetcher) FetchMediaDetails(shortcode string) (*models.MediaDetails, error) {
	if shortcode == "" {
		return nil, errors.New(errors.KindViewFetch, "missing shortcode for media info fetch")
	}

	mediaPK, err := ShortcodeToMediaPK(shortcode)
	if err != nil {
		return nil, errors.Newf(errors.KindViewFetch,
			"cannot derive media identifier from shortcode %q: %v", shortcode, err)
	}

	f.logger.DebugWithFields("fetching media info", map[string]interface{}{
		"shortcode": shortcode,
		"media_pk":  mediaPK,
	})

	var page payload.RawPayload
	status, err := f.client.GetJSON(MediaInfoURL(mediaPK), PostURL(shortcode), &page)
	if err != nil {
		return nil, errors.Wrap(errors.KindViewFetch, "media info request failed", err)
	}
	if status < 200 || status >= 300 {
		f.logger.WarnWithFields("media info endpoint returned error status", map[string]interface{}{
			"shortcode": shortcode,
			"status":    status,
		})
		return &models.MediaDetails{}, nil
	}

	media := firstItem(page)
	if media == nil {
		return &models.MediaDetails{}, nil
	}

	return &models.MediaDetails{
		ViewCount:    probeDigits(media, metricsViewKeys...),
		CommentCount: probeDigits(media, "comment_count", "commentCount"),
		Caption:      extractCaption(media),
		Audio:        extractAudioInfo(media),
		Owner:        extractOwnerInfo(media),
	}, nil
}

func firstItem(page payload.RawPayload) payload.RawPayload {
	items := page.List("items")
	if len(items) == 0 {
		return nil
	}
	if m, ok := items[0].(map[string]interface{}); ok {
		return payload.RawPayload(m)
	}
	return nil
}

// probeDigits accepts numeric values and digit-only strings, unlike the
// parser's looser decode: pretty-printed strings with suffixes are not
// trusted on this endpoint.
func probeDigits(media payload.RawPayload, keys ...string) *int64 {
	for _, key := range keys {
		if n := safeInt(media[key]); n != nil {
			return n
		}
	}
	return nil
}

func safeInt(value interface{}) *int64 {
	switch v := value.(type) {
	case float64:
		n := int64(v)
		return &n
	case int:
		n := int64(v)
		return &n
	case int64:
		return &v
	case string:
		var digits strings.Builder
		for _, ch := range v {
			if ch >= '0' && ch <= '9' {
				digits.WriteRune(ch)
			}
		}
		if digits.Len() == 0 {
			return nil
		}
		return payload.DecodeInt(digits.String())
	}
	return nil
}

func extractCaption(media payload.RawPayload) string {
	caption := media.Map("caption")
	if caption == nil {
		return ""
	}
	return strings.TrimSpace(caption.String("text"))
}

// extractAudioInfo is two-tier: an attached licensed music asset wins,
// else the creator's original sound. The block is only populated when at
// least one of title/artist/id/url is present; only http(s) URLs are kept.
func extractAudioInfo(media payload.RawPayload) *models.AudioInfo {
	clips := media.Map("clips_metadata")
	if clips == nil {
		return nil
	}

	if musicInfo := clips.Map("music_info"); musicInfo != nil {
		if asset := musicInfo.Map("music_asset_info"); asset != nil {
			audio := &models.AudioInfo{
				Title:  asset.String("title"),
				Artist: asset.String("display_artist"),
				ID:     stringify(firstPresent(asset, "id", "audio_asset_id")),
				URL:    normalizeAudioURL(asset.String("progressive_download_url"), asset.String("dash_manifest")),
			}
			if audio.Title != "" || audio.Artist != "" || audio.ID != "" || audio.URL != "" {
				return audio
			}
		}
	}

	if original := clips.Map("original_sound_info"); original != nil {
		artist := original.String("original_audio_artist")
		if artist == "" {
			if user := media.Map("user"); user != nil {
				artist = user.String("username")
			}
		}
		audio := &models.AudioInfo{
			Title:  original.String("original_audio_title"),
			Artist: artist,
			ID:     stringify(original["audio_asset_id"]),
			URL:    normalizeAudioURL(original.String("progressive_download_url"), original.String("dash_manifest")),
		}
		if audio.Title != "" || audio.Artist != "" || audio.ID != "" || audio.URL != "" {
			return audio
		}
	}

	return nil
}

func firstPresent(m payload.RawPayload, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			if s, isString := v.(string); isString && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func normalizeAudioURL(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
			return candidate
		}
	}
	return ""
}

// extractOwnerInfo builds an owner profile stub from an owner or user
// sub-object, probing follower/following/post counts across the flat and
// edge-wrapped shapes. An all-empty block is treated as absent.
func extractOwnerInfo(media payload.RawPayload) *models.Profile {
	var user payload.RawPayload
	for _, key := range []string{"owner", "user"} {
		if candidate := media.Map(key); candidate != nil {
			user = candidate
			break
		}
	}
	if user == nil {
		return nil
	}

	profilePic := user.String("profile_pic_url_hd")
	if profilePic == "" {
		profilePic = user.String("profile_pic_url")
	}

	profile := &models.Profile{
		Username:      user.String("username"),
		FullName:      user.String("full_name"),
		Biography:     user.String("biography"),
		Posts:         probeCount(user, "media_count", "mediaCount", ""),
		Followers:     probeCount(user, "follower_count", "followerCount", "edge_followed_by"),
		Following:     probeCount(user, "following_count", "followingCount", "edge_follow"),
		ProfilePicURL: profilePic,
	}

	if profile.Username == "" && profile.FullName == "" && profile.Biography == "" &&
		profile.Posts == nil && profile.Followers == nil && profile.Following == nil &&
		profile.ProfilePicURL == "" {
		return nil
	}

	return profile
}

func probeCount(user payload.RawPayload, flatKey, camelKey, edgeKey string) *int64 {
	if n := safeInt(user[flatKey]); n != nil {
		return n
	}
	if n := safeInt(user[camelKey]); n != nil {
		return n
	}
	if edgeKey != "" {
		if edge := user.Map(edgeKey); edge != nil {
			return safeInt(edge["count"])
		}
	}
	return nil
}
