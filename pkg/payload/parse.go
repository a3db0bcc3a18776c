package payload

import (
	"reelscraper/pkg/errors"
	"reelscraper/pkg/models"
)

// Parse transforms an extractor payload into a typed post plus the initial
// comment list, independent of which enrichment stages run afterwards.
// A payload without a media identifier is a parsing error; no partial post
// is returned.
func Parse(p RawPayload, includeComments bool, maxComments int) (*models.Post, []models.Comment, error) {
	if _, ok := p["id"]; !ok {
		return nil, nil, errors.New(errors.KindParsing, "missing media identifier in extractor payload")
	}

	caption := p.String("description")
	if caption == "" {
		caption = p.String("full_description")
	}

	username := p.String("uploader_id")
	if username == "" {
		username = p.String("uploader")
	}

	fullName := p.String("uploader")
	if fullName == "" {
		fullName = p.String("creator")
	}

	duration, _ := p.Float("duration")

	takenAt := DecodeTimestamp(p["timestamp"])
	if takenAt == nil {
		takenAt = DecodeTimestamp(p["upload_date"])
	}

	post := &models.Post{
		Shortcode:     p.String("id"),
		Caption:       caption,
		Username:      username,
		FullName:      fullName,
		LikeCount:     p.Int("like_count"),
		CommentCount:  p.Int("comment_count"),
		ViewCount:     p.ViewCount(),
		TakenAt:       takenAt,
		VideoDuration: duration,
		VideoURL:      p.SelectVideoURL(),
		ThumbnailURL:  p.String("thumbnail"),
		Hashtags:      Hashtags(caption),
		Mentions:      Mentions(caption),
	}

	var comments []models.Comment
	if includeComments {
		for _, entry := range p.List("comments") {
			if len(comments) >= maxComments {
				break
			}
			raw, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			comments = append(comments, parseComment(RawPayload(raw)))
		}
	}

	return post, comments, nil
}

func parseComment(raw RawPayload) models.Comment {
	id := raw.String("id")
	if id == "" {
		id = raw.String("comment_id")
	}

	username := raw.String("author")
	if username == "" {
		username = raw.String("user")
	}
	if username == "" {
		username = raw.String("username")
	}

	text := raw.String("text")
	if text == "" {
		text = raw.String("body")
	}

	var likeCount int64
	if n := DecodeInt(raw["like_count"]); n != nil {
		likeCount = *n
	} else if n := DecodeInt(raw["likecount"]); n != nil {
		likeCount = *n
	}

	createdAt := DecodeTimestamp(raw["timestamp"])
	if createdAt == nil {
		createdAt = DecodeTimestamp(raw["created_at"])
	}

	return models.Comment{
		ID:        id,
		Username:  username,
		Text:      text,
		LikeCount: likeCount,
		CreatedAt: createdAt,
	}
}
