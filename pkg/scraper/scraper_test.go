package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelscraper/pkg/config"
	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
	"reelscraper/pkg/storage"
)

const testURL = "https://www.instagram.com/reel/CxyzAbc1234/"

type stubExtractor struct {
	doc         payload.RawPayload
	infoErr     error
	downloadErr error
	downloaded  []string
}

func (s *stubExtractor) FetchInfo(ctx context.Context, url string) (payload.RawPayload, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	return s.doc, nil
}

func (s *stubExtractor) Download(ctx context.Context, url, dest string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	s.downloaded = append(s.downloaded, dest)
	return nil
}

type stubComments struct {
	comments []models.Comment
	err      error
	calls    int
}

func (s *stubComments) FetchComments(shortcode string, limit int, existingIDs []string) ([]models.Comment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.comments, nil
}

type stubMetrics struct {
	details *models.MediaDetails
	err     error
}

func (s *stubMetrics) FetchMediaDetails(shortcode string) (*models.MediaDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.details, nil
}

type stubProfiles struct {
	profiles map[string]*models.Profile
	err      error
	lookups  []string
}

func (s *stubProfiles) Resolve(username string) (*models.Profile, error) {
	s.lookups = append(s.lookups, username)
	if s.err != nil {
		return nil, s.err
	}
	return s.profiles[username], nil
}

func basePayload() payload.RawPayload {
	return payload.RawPayload{
		"id":            "CxyzAbc1234",
		"description":   "caption #tag",
		"uploader_id":   "creator",
		"comment_count": float64(2),
		"url":           "https://cdn.example/video.mp4",
		"comments": []interface{}{
			map[string]interface{}{"id": "c1", "author": "alice", "text": "hi"},
		},
	}
}

func newTestScraper(t *testing.T, ext MediaExtractor, comments CommentFetcher, metrics MetricsFetcher, profiles ProfileResolver) *Scraper {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	require.NoError(t, err)

	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)

	return &Scraper{
		cfg:       cfg,
		extractor: ext,
		comments:  comments,
		metrics:   metrics,
		profiles:  profiles,
		storage:   store,
		logger:    log,
	}
}

func TestScrapeHappyPath(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	comments := &stubComments{comments: []models.Comment{
		{ID: "c2", Username: "bob", Text: "second"},
		{ID: "c3", Username: "alice", Text: "third"},
	}}
	metrics := &stubMetrics{details: &models.MediaDetails{
		ViewCount: int64Ptr(5000),
		Audio:     &models.AudioInfo{Title: "Song"},
		Owner:     &models.Profile{Username: "creator", FullName: "The Creator"},
	}}
	profiles := &stubProfiles{profiles: map[string]*models.Profile{
		"creator": {Username: "creator", Followers: int64Ptr(100)},
		"alice":   {Username: "alice"},
	}}

	s := newTestScraper(t, ext, comments, metrics, profiles)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageOK, result.Enrichment.Comments)
	assert.Equal(t, models.StageOK, result.Enrichment.Metrics)
	assert.Equal(t, models.StageOK, result.Enrichment.Profiles)

	assert.Len(t, result.Comments, 3)
	assert.Equal(t, 3, result.FetchedCommentCount)

	require.NotNil(t, result.Post.ViewCount)
	assert.Equal(t, int64(5000), *result.Post.ViewCount)
	require.NotNil(t, result.Post.Audio)
	assert.Equal(t, "Song", result.Post.Audio.Title)

	require.NotNil(t, result.Post.OwnerProfile)
	assert.Equal(t, "creator", result.Post.OwnerProfile.Username)
	require.NotNil(t, result.Post.OwnerProfile.Followers)
	assert.Equal(t, int64(100), *result.Post.OwnerProfile.Followers)
	assert.Equal(t, "The Creator", result.Post.OwnerProfile.FullName)

	// alice appears twice but resolves once; her comments carry the profile
	require.NotNil(t, result.Comments[0].Profile)
	assert.Equal(t, "alice", result.Comments[0].Profile.Username)
	require.NotNil(t, result.Comments[2].Profile)
	assert.Same(t, result.Comments[0].Profile, result.Comments[2].Profile)
	assert.Nil(t, result.Comments[1].Profile)

	assert.Empty(t, result.VideoPath)
	assert.Empty(t, ext.downloaded)
}

func TestScrapeInvalidURL(t *testing.T) {
	s := newTestScraper(t, &stubExtractor{}, nil, nil, nil)
	_, err := s.Scrape(context.Background(), "https://example.com/watch?v=abc", false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidURL))
}

func TestScrapeExtractionFailureIsTerminal(t *testing.T) {
	ext := &stubExtractor{infoErr: errors.New(errors.KindRequest, "extractor exploded")}
	s := newTestScraper(t, ext, nil, nil, nil)

	_, err := s.Scrape(context.Background(), testURL, false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindRequest))
}

func TestScrapeNoDownloadableMedia(t *testing.T) {
	doc := basePayload()
	delete(doc, "url")
	s := newTestScraper(t, &stubExtractor{doc: doc}, nil, nil, nil)

	_, err := s.Scrape(context.Background(), testURL, false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParsing))
}

func TestScrapeCommentFailureDegrades(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	comments := &stubComments{err: errors.New(errors.KindCommentFetch, "blocked")}

	s := newTestScraper(t, ext, comments, nil, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageFailed, result.Enrichment.Comments)
	// the comments the extractor returned survive the failed stage
	assert.Len(t, result.Comments, 1)
	assert.Equal(t, 1, result.FetchedCommentCount)
}

func TestScrapeMetricsFailureDegrades(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	metrics := &stubMetrics{err: errors.New(errors.KindViewFetch, "blocked")}

	s := newTestScraper(t, ext, nil, metrics, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageFailed, result.Enrichment.Metrics)
	assert.Nil(t, result.Post.ViewCount)
	assert.Equal(t, "creator", result.Post.Username)
}

func TestScrapeCommentCountNeverRegresses(t *testing.T) {
	doc := basePayload()
	doc["comment_count"] = float64(1)
	ext := &stubExtractor{doc: doc}
	comments := &stubComments{comments: []models.Comment{
		{ID: "c2", Username: "bob"},
		{ID: "c3", Username: "carol"},
	}}
	// metrics reports fewer comments than already collected
	metrics := &stubMetrics{details: &models.MediaDetails{CommentCount: int64Ptr(2)}}

	s := newTestScraper(t, ext, comments, metrics, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	require.NotNil(t, result.Post.CommentCount)
	assert.Equal(t, int64(3), *result.Post.CommentCount)
}

func TestScrapeCommentCountGrowsFromMetrics(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	metrics := &stubMetrics{details: &models.MediaDetails{CommentCount: int64Ptr(150)}}

	s := newTestScraper(t, ext, nil, metrics, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	require.NotNil(t, result.Post.CommentCount)
	assert.Equal(t, int64(150), *result.Post.CommentCount)
}

func TestScrapeCommentsDisabled(t *testing.T) {
	comments := &stubComments{comments: []models.Comment{{ID: "c2"}}}
	s := newTestScraper(t, &stubExtractor{doc: basePayload()}, comments, nil, nil)
	s.cfg.Instagram.IncludeComments = false

	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageSkipped, result.Enrichment.Comments)
	assert.Nil(t, result.Comments)
	assert.Equal(t, 0, result.FetchedCommentCount)
	assert.Equal(t, 0, comments.calls)
}

func TestScrapeFetchedCommentCountMatchesResult(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	comments := &stubComments{comments: []models.Comment{
		{ID: "c2", Username: "bob"},
		{ID: "c3", Username: "carol"},
	}}

	s := newTestScraper(t, ext, comments, nil, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	// the count covers the whole returned list, parsed comments included
	assert.Len(t, result.Comments, 3)
	assert.Equal(t, len(result.Comments), result.FetchedCommentCount)
}

func TestScrapeCommentCountSetWithoutFetch(t *testing.T) {
	t.Run("cap already met", func(t *testing.T) {
		doc := basePayload()
		delete(doc, "comment_count")
		comments := &stubComments{comments: []models.Comment{{ID: "c2"}}}

		s := newTestScraper(t, &stubExtractor{doc: doc}, comments, nil, nil)
		s.cfg.Instagram.MaxComments = 1

		result, err := s.Scrape(context.Background(), testURL, false)
		require.NoError(t, err)

		assert.Equal(t, 0, comments.calls)
		require.NotNil(t, result.Post.CommentCount)
		assert.Equal(t, int64(1), *result.Post.CommentCount)
	})

	t.Run("no fetcher configured", func(t *testing.T) {
		doc := basePayload()
		delete(doc, "comment_count")

		s := newTestScraper(t, &stubExtractor{doc: doc}, nil, nil, nil)
		result, err := s.Scrape(context.Background(), testURL, false)
		require.NoError(t, err)

		require.NotNil(t, result.Post.CommentCount)
		assert.Equal(t, int64(1), *result.Post.CommentCount)
	})
}

func TestScrapeCommentCapRespected(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	comments := &stubComments{comments: []models.Comment{
		{ID: "c2"}, {ID: "c3"}, {ID: "c4"},
	}}

	s := newTestScraper(t, ext, comments, nil, nil)
	s.cfg.Instagram.MaxComments = 2

	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)
	assert.Len(t, result.Comments, 2)
}

func TestScrapeOwnerProfileSharedWithOwnComments(t *testing.T) {
	doc := basePayload()
	doc["comments"] = []interface{}{
		map[string]interface{}{"id": "c1", "author": "Creator", "text": "thanks all"},
		map[string]interface{}{"id": "c2", "author": "alice", "text": "hi"},
	}
	ext := &stubExtractor{doc: doc}
	metrics := &stubMetrics{details: &models.MediaDetails{
		Owner: &models.Profile{Username: "creator", FullName: "The Creator"},
	}}
	profiles := &stubProfiles{profiles: map[string]*models.Profile{
		"creator": {Username: "creator", Followers: int64Ptr(100)},
	}}

	s := newTestScraper(t, ext, nil, metrics, profiles)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	require.NotNil(t, result.Post.OwnerProfile)
	require.NotNil(t, result.Comments[0].Profile)
	// owner and their own comment carry one shared instance
	assert.Same(t, result.Post.OwnerProfile, result.Comments[0].Profile)
	assert.Equal(t, "The Creator", result.Comments[0].Profile.FullName)

	// the owner lookup is not repeated for their comment
	assert.Equal(t, []string{"creator", "alice"}, profiles.lookups)
}

func TestScrapeProfileFailureDegrades(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	profiles := &stubProfiles{err: errors.New(errors.KindProfileFetch, "blocked")}

	s := newTestScraper(t, ext, nil, nil, profiles)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageFailed, result.Enrichment.Profiles)
	assert.NotNil(t, result.Post)
}

func TestScrapeDownload(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	s := newTestScraper(t, ext, nil, nil, nil)

	result, err := s.Scrape(context.Background(), testURL, true)
	require.NoError(t, err)

	require.Len(t, ext.downloaded, 1)
	assert.Equal(t, ext.downloaded[0], result.VideoPath)
	assert.Contains(t, result.VideoPath, "CxyzAbc1234.mp4")
}

func TestScrapeDownloadFailureIsTerminal(t *testing.T) {
	ext := &stubExtractor{
		doc:         basePayload(),
		downloadErr: errors.New(errors.KindMediaDownload, "network gone"),
	}
	s := newTestScraper(t, ext, nil, nil, nil)

	_, err := s.Scrape(context.Background(), testURL, true)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindMediaDownload))
}

func TestScrapeMetricsCaptionOverrides(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	metrics := &stubMetrics{details: &models.MediaDetails{Caption: "full caption #late"}}

	s := newTestScraper(t, ext, nil, metrics, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, "full caption #late", result.Post.Caption)
	assert.Equal(t, []string{"late"}, result.Post.Hashtags)
}

func TestScrapeMetricsEmptyCaptionKeepsParsed(t *testing.T) {
	ext := &stubExtractor{doc: basePayload()}
	metrics := &stubMetrics{details: &models.MediaDetails{}}

	s := newTestScraper(t, ext, nil, metrics, nil)
	result, err := s.Scrape(context.Background(), testURL, false)
	require.NoError(t, err)

	assert.Equal(t, "caption #tag", result.Post.Caption)
	assert.Equal(t, []string{"tag"}, result.Post.Hashtags)
}

func int64Ptr(n int64) *int64 { return &n }
