package scraper

import (
	"context"

	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
)

// MediaExtractor produces the base metadata payload for a post URL and
// downloads its media file.
type MediaExtractor interface {
	FetchInfo(ctx context.Context, url string) (payload.RawPayload, error)
	Download(ctx context.Context, url, dest string) error
}

// CommentFetcher extends the comment set beyond what the extractor returned.
type CommentFetcher interface {
	FetchComments(shortcode string, limit int, existingIDs []string) ([]models.Comment, error)
}

// MetricsFetcher resolves view/comment counts, caption, audio, and an owner
// stub in a single request.
type MetricsFetcher interface {
	FetchMediaDetails(shortcode string) (*models.MediaDetails, error)
}

// ProfileResolver looks up full public profiles by username. A nil profile
// with a nil error means the account is not resolvable.
type ProfileResolver interface {
	Resolve(username string) (*models.Profile, error)
}
