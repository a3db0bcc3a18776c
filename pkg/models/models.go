package models

import "time"

// Profile holds the public attributes of an Instagram account. Instances are
// shared by pointer between a post owner and any comment authored by the same
// username within a single scrape.
type Profile struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name,omitempty"`
	Biography     string `json:"biography,omitempty"`
	Posts         *int64 `json:"posts,omitempty"`
	Followers     *int64 `json:"followers,omitempty"`
	Following     *int64 `json:"following,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
}

// AudioInfo describes the audio track attached to a reel, either a licensed
// music asset or the creator's original sound.
type AudioInfo struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Comment is a single comment on a post. ID is always present; Profile is
// attached during enrichment only.
type Comment struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Text      string     `json:"text"`
	LikeCount int64      `json:"like_count"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Profile   *Profile   `json:"profile,omitempty"`
}

// Post is the primary media record. Optional numeric fields use pointers so
// "absent" and "zero" stay distinguishable across enrichment merges.
type Post struct {
	Shortcode     string     `json:"shortcode"`
	Caption       string     `json:"caption,omitempty"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name,omitempty"`
	LikeCount     *int64     `json:"like_count,omitempty"`
	CommentCount  *int64     `json:"comment_count,omitempty"`
	ViewCount     *int64     `json:"view_count,omitempty"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
	VideoDuration float64    `json:"video_duration,omitempty"`
	VideoURL      string     `json:"video_url,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	Audio         *AudioInfo `json:"audio,omitempty"`
	Hashtags      []string   `json:"hashtags,omitempty"`
	Mentions      []string   `json:"mentions,omitempty"`
	OwnerProfile  *Profile   `json:"owner_profile,omitempty"`
}

// MediaDetails is the single-shot metrics/owner lookup result used to enrich
// a parsed post. Every field is optional; an all-empty value is valid.
type MediaDetails struct {
	ViewCount    *int64     `json:"view_count,omitempty"`
	CommentCount *int64     `json:"comment_count,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	Audio        *AudioInfo `json:"audio,omitempty"`
	Owner        *Profile   `json:"owner,omitempty"`
}

// StageStatus reports how an optional enrichment stage ended.
type StageStatus string

const (
	StageSkipped StageStatus = "skipped"
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
)

// EnrichmentStatus makes best-effort degradation visible in the result rather
// than leaving callers to infer it from absent fields.
type EnrichmentStatus struct {
	Comments StageStatus `json:"comments"`
	Metrics  StageStatus `json:"metrics"`
	Profiles StageStatus `json:"profiles"`
}

// ScrapeResult is the output contract of one scrape operation.
type ScrapeResult struct {
	Post                *Post            `json:"post"`
	Comments            []Comment        `json:"comments"`
	VideoPath           string           `json:"video_path,omitempty"`
	FetchedCommentCount int              `json:"fetched_comment_count"`
	Enrichment          EnrichmentStatus `json:"enrichment"`
}
