// Package scraper orchestrates a scrape: canonicalize the URL, extract the
// base payload, parse it, then run the optional enrichment stages. Enrichment
// failures degrade their stage and never abort the scrape; URL, extraction,
// parsing, and download failures are terminal.
package scraper

import (
	"context"
	"encoding/json"
	"strings"

	"reelscraper/pkg/config"
	"reelscraper/pkg/errors"
	"reelscraper/pkg/extractor"
	"reelscraper/pkg/instagram"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
	"reelscraper/pkg/storage"
)

// maxCommenterLookups caps profile resolution across comment authors so a
// popular post cannot fan out into hundreds of profile requests.
const maxCommenterLookups = 30

// Scraper wires the extractor, fetchers, and storage behind one operation.
type Scraper struct {
	cfg       *config.Config
	extractor MediaExtractor
	comments  CommentFetcher
	metrics   MetricsFetcher
	profiles  ProfileResolver
	storage   *storage.Manager
	logger    logger.Logger
}

// New builds a fully wired scraper from the resolved configuration. A missing
// cookies file downgrades to an anonymous session with a warning rather than
// failing.
func New(cfg *config.Config) (*Scraper, error) {
	log := logger.GetLogger()

	session := instagram.NewAnonymousSession()
	if cfg.Instagram.CookiesPath != "" {
		loaded, err := instagram.LoadSession(cfg.Instagram.CookiesPath)
		if err != nil {
			log.WarnWithFields("could not load cookies, continuing anonymously", map[string]interface{}{
				"path":  cfg.Instagram.CookiesPath,
				"error": err.Error(),
			})
		} else {
			session = loaded
			log.InfoWithFields("session loaded", map[string]interface{}{
				"cookies": session.Count(),
			})
		}
	}

	client := instagram.NewClient(cfg.Instagram.RequestTimeout, session, cfg.Instagram.UserAgent, log)

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:       cfg,
		extractor: extractor.New(cfg, log),
		comments:  instagram.NewCommentFetcher(client, log),
		metrics:   instagram.NewMetricsFetcher(client, log),
		profiles: instagram.NewProfileResolver(
			cfg.Profile.Strategy, client, cfg.Profile.RequestDelay, log),
		storage: store,
		logger:  log,
	}, nil
}

// Scrape runs the full pipeline for one post URL. The returned result always
// carries per-stage enrichment status; a non-nil error is always terminal.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, downloadVideo bool) (*models.ScrapeResult, error) {
	canonical, err := instagram.ParseMediaURL(rawURL)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("scraping post", map[string]interface{}{
		"shortcode": canonical.Shortcode,
		"entity":    canonical.Entity,
	})

	doc, err := s.extractor.FetchInfo(ctx, canonical.URL)
	if err != nil {
		return nil, err
	}
	if s.cfg.Extractor.LogRawPayload {
		s.logRawPayload(canonical.Shortcode, doc)
	}

	includeComments := s.cfg.Instagram.IncludeComments
	maxComments := s.cfg.Instagram.MaxComments

	post, comments, err := payload.Parse(doc, includeComments, maxComments)
	if err != nil {
		return nil, err
	}
	if post.Shortcode == "" {
		post.Shortcode = canonical.Shortcode
	}
	if post.VideoURL == "" {
		return nil, errors.New(errors.KindParsing, "payload carries no downloadable media")
	}

	status := models.EnrichmentStatus{
		Comments: models.StageSkipped,
		Metrics:  models.StageSkipped,
		Profiles: models.StageSkipped,
	}

	if includeComments && s.comments != nil {
		comments, status.Comments = s.enrichComments(post, comments, maxComments)
	}
	if includeComments {
		// the visible comment total can only grow from what the parser saw
		total := int64(len(comments))
		if post.CommentCount == nil || *post.CommentCount < total {
			post.CommentCount = &total
		}
	}

	if s.metrics != nil {
		status.Metrics = s.enrichMetrics(post)
	}

	if s.profiles != nil {
		status.Profiles = s.enrichProfiles(post, comments, maxComments)
	}

	result := &models.ScrapeResult{
		Post:       post,
		Comments:   comments,
		Enrichment: status,
	}
	if !includeComments {
		result.Comments = nil
	}
	result.FetchedCommentCount = len(result.Comments)

	if downloadVideo {
		dest := s.storage.VideoPath(post.Shortcode)
		if err := s.extractor.Download(ctx, canonical.URL, dest); err != nil {
			return nil, err
		}
		result.VideoPath = dest
	}

	s.logger.InfoWithFields("scrape finished", map[string]interface{}{
		"shortcode": post.Shortcode,
		"comments":  len(result.Comments),
		"fetched":   result.FetchedCommentCount,
	})
	return result, nil
}

// enrichComments pages the comments endpoint for comments the extractor did
// not return. Failures degrade the stage; already-collected comments are kept.
func (s *Scraper) enrichComments(post *models.Post, comments []models.Comment, limit int) ([]models.Comment, models.StageStatus) {
	if len(comments) >= limit {
		return comments[:limit], models.StageSkipped
	}

	existing := make([]string, 0, len(comments))
	for _, c := range comments {
		existing = append(existing, c.ID)
	}

	fetchedComments, err := s.comments.FetchComments(post.Shortcode, limit, existing)
	if err != nil {
		s.logger.WarnWithFields("comment enrichment failed", map[string]interface{}{
			"shortcode": post.Shortcode,
			"error":     err.Error(),
		})
		return comments, models.StageFailed
	}

	comments = append(comments, fetchedComments...)
	if len(comments) > limit {
		comments = comments[:limit]
	}

	return comments, models.StageOK
}

// enrichMetrics merges the single-shot metrics lookup into the post. Merges
// are additive: a present field overwrites, an absent one leaves the parsed
// value alone, and counts never regress. The owner stub seeds the profile
// stage.
func (s *Scraper) enrichMetrics(post *models.Post) models.StageStatus {
	details, err := s.metrics.FetchMediaDetails(post.Shortcode)
	if err != nil {
		s.logger.WarnWithFields("metrics enrichment failed", map[string]interface{}{
			"shortcode": post.Shortcode,
			"error":     err.Error(),
		})
		return models.StageFailed
	}

	if details.ViewCount != nil {
		post.ViewCount = details.ViewCount
	}
	if details.CommentCount != nil {
		if post.CommentCount == nil || *details.CommentCount > *post.CommentCount {
			post.CommentCount = details.CommentCount
		}
	}
	if details.Caption != "" {
		post.Caption = details.Caption
		post.Hashtags = payload.Hashtags(post.Caption)
		post.Mentions = payload.Mentions(post.Caption)
	}
	if details.Audio != nil {
		post.Audio = details.Audio
	}
	if details.Owner != nil {
		post.OwnerProfile = details.Owner
		if details.Owner.Username != "" {
			post.Username = details.Owner.Username
		}
		if details.Owner.FullName != "" {
			post.FullName = details.Owner.FullName
		}
	}

	return models.StageOK
}

// enrichProfiles resolves the owner plus a bounded set of distinct comment
// authors. Per-username failures are logged and the stage reported failed,
// but resolution continues for the remaining usernames.
func (s *Scraper) enrichProfiles(post *models.Post, comments []models.Comment, maxComments int) models.StageStatus {
	stage := models.StageOK
	resolved := make(map[string]*models.Profile)

	owner := post.Username
	if post.OwnerProfile != nil && post.OwnerProfile.Username != "" {
		owner = post.OwnerProfile.Username
	}
	if owner != "" {
		profile, err := s.profiles.Resolve(owner)
		if err != nil {
			s.logger.WarnWithFields("owner profile lookup failed", map[string]interface{}{
				"username": owner,
				"error":    err.Error(),
			})
			stage = models.StageFailed
		} else if profile != nil {
			post.OwnerProfile = mergeProfiles(post.OwnerProfile, profile)
			// comments by the owner share the merged instance
			resolved[strings.ToLower(owner)] = post.OwnerProfile
		}
	}

	budget := maxCommenterLookups
	if maxComments < budget {
		budget = maxComments
	}

	lookups := 0
	for i := range comments {
		username := strings.ToLower(strings.TrimSpace(comments[i].Username))
		if username == "" {
			continue
		}

		profile, seen := resolved[username]
		if !seen {
			if lookups >= budget {
				continue
			}
			lookups++
			var err error
			profile, err = s.profiles.Resolve(username)
			if err != nil {
				s.logger.WarnWithFields("commenter profile lookup failed", map[string]interface{}{
					"username": username,
					"error":    err.Error(),
				})
				stage = models.StageFailed
			}
			resolved[username] = profile
		}
		if profile != nil {
			comments[i].Profile = profile
		}
	}

	return stage
}

// mergeProfiles overlays a fully resolved profile onto the metrics owner
// stub, keeping stub fields the full lookup left empty.
func mergeProfiles(stub, full *models.Profile) *models.Profile {
	if stub == nil {
		return full
	}
	merged := *full
	if merged.Username == "" {
		merged.Username = stub.Username
	}
	if merged.FullName == "" {
		merged.FullName = stub.FullName
	}
	if merged.Biography == "" {
		merged.Biography = stub.Biography
	}
	if merged.Posts == nil {
		merged.Posts = stub.Posts
	}
	if merged.Followers == nil {
		merged.Followers = stub.Followers
	}
	if merged.Following == nil {
		merged.Following = stub.Following
	}
	if merged.ProfilePicURL == "" {
		merged.ProfilePicURL = stub.ProfilePicURL
	}
	return &merged
}

func (s *Scraper) logRawPayload(shortcode string, doc payload.RawPayload) {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return
	}
	s.logger.DebugWithFields("raw extractor payload", map[string]interface{}{
		"shortcode": shortcode,
		"payload":   string(encoded),
	})
}
