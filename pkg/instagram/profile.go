package instagram

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
	"reelscraper/pkg/ratelimit"
)

// ProfileResolver looks up the public profile for a username. A nil profile
// with a nil error means the account could not be resolved; that outcome is
// cached so a username is never retried within one resolver's lifetime.
type ProfileResolver interface {
	Resolve(username string) (*models.Profile, error)
}

// profileCache memoizes lookups per lowercased username, including negative
// results. Resolvers share it through embedding; the mutex makes concurrent
// scrapes safe.
type profileCache struct {
	mu      sync.Mutex
	entries map[string]*models.Profile
}

func newProfileCache() *profileCache {
	return &profileCache{entries: make(map[string]*models.Profile)}
}

func (c *profileCache) get(key string) (*models.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	profile, ok := c.entries[key]
	return profile, ok
}

func (c *profileCache) put(key string, profile *models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = profile
}

// WebProfileResolver resolves profiles with the single-request web profile
// endpoint keyed directly by username.
type WebProfileResolver struct {
	client *Client
	cache  *profileCache
	pacer  ratelimit.Limiter
	logger logger.Logger
}

// NewWebProfileResolver creates a resolver with its own cache and pacer.
func NewWebProfileResolver(client *Client, delay time.Duration, log logger.Logger) *WebProfileResolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &WebProfileResolver{
		client: client,
		cache:  newProfileCache(),
		pacer:  ratelimit.NewPacer(delay),
		logger: log,
	}
}

// Resolve looks the username up, serving repeats from the cache.
func (r *WebProfileResolver) Resolve(username string) (*models.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return nil, nil
	}
	if profile, ok := r.cache.get(key); ok {
		return profile, nil
	}

	r.pacer.Wait()

	var page payload.RawPayload
	status, err := r.client.GetJSON(WebProfileURL(key), ProfilePageURL(key), &page)
	if err != nil {
		return nil, errors.Wrap(errors.KindProfileFetch, "profile request failed", err)
	}
	if status >= http.StatusBadRequest {
		logUnresolvedProfile(r.logger, key, status)
		r.cache.put(key, nil)
		return nil, nil
	}

	profile := buildProfile(page.Map("data").Map("user"))
	r.cache.put(key, profile)
	return profile, nil
}

// SearchProfileResolver resolves profiles in two hops: an account search to
// map the username to its stable numeric id, then a fetch-by-id request. The
// id mapping is cached separately so repeat lookups after a failed second hop
// skip the search.
type SearchProfileResolver struct {
	client *Client
	cache  *profileCache
	pacer  ratelimit.Limiter
	logger logger.Logger

	idMu  sync.Mutex
	idFor map[string]int64
}

// NewSearchProfileResolver creates a search-strategy resolver.
func NewSearchProfileResolver(client *Client, delay time.Duration, log logger.Logger) *SearchProfileResolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SearchProfileResolver{
		client: client,
		cache:  newProfileCache(),
		pacer:  ratelimit.NewPacer(delay),
		logger: log,
		idFor:  make(map[string]int64),
	}
}

// Resolve looks the username up, serving repeats from the cache.
func (r *SearchProfileResolver) Resolve(username string) (*models.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return nil, nil
	}
	if profile, ok := r.cache.get(key); ok {
		return profile, nil
	}

	userID, found, err := r.lookupUserID(key)
	if err != nil {
		return nil, err
	}
	if !found {
		r.cache.put(key, nil)
		return nil, nil
	}

	r.pacer.Wait()

	var page payload.RawPayload
	status, err := r.client.GetJSON(UserInfoURL(userID), ProfilePageURL(key), &page)
	if err != nil {
		return nil, errors.Wrap(errors.KindProfileFetch, "user info request failed", err)
	}
	if status >= http.StatusBadRequest {
		logUnresolvedProfile(r.logger, key, status)
		r.cache.put(key, nil)
		return nil, nil
	}

	profile := buildProfile(page.Map("user"))
	r.cache.put(key, profile)
	return profile, nil
}

func (r *SearchProfileResolver) lookupUserID(key string) (int64, bool, error) {
	r.idMu.Lock()
	cached, ok := r.idFor[key]
	r.idMu.Unlock()
	if ok {
		return cached, cached != 0, nil
	}

	r.pacer.Wait()

	var page payload.RawPayload
	status, err := r.client.GetJSON(TopSearchURL(key), ProfilePageURL(key), &page)
	if err != nil {
		return 0, false, errors.Wrap(errors.KindProfileFetch, "account search request failed", err)
	}
	if status >= http.StatusBadRequest {
		logUnresolvedProfile(r.logger, key, status)
		r.storeUserID(key, 0)
		return 0, false, nil
	}

	for _, entry := range page.List("users") {
		wrapper, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		user := payload.RawPayload(wrapper).Map("user")
		if user == nil {
			continue
		}
		if !strings.EqualFold(user.String("username"), key) {
			continue
		}
		if pk := payload.DecodeInt(user["pk"]); pk != nil && *pk != 0 {
			r.storeUserID(key, *pk)
			return *pk, true, nil
		}
	}

	r.logger.DebugWithFields("account search found no exact match", map[string]interface{}{
		"username": key,
	})
	r.storeUserID(key, 0)
	return 0, false, nil
}

func (r *SearchProfileResolver) storeUserID(key string, id int64) {
	r.idMu.Lock()
	r.idFor[key] = id
	r.idMu.Unlock()
}

// buildProfile converts a user payload into a profile, probing both the
// edge-wrapped and the flat count shapes. Returns nil when the payload is
// missing or carries nothing usable.
func buildProfile(user payload.RawPayload) *models.Profile {
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
		Posts:         probeCount(user, "media_count", "mediaCount", "edge_owner_to_timeline_media"),
		Followers:     probeCount(user, "follower_count", "followerCount", "edge_followed_by"),
		Following:     probeCount(user, "following_count", "followingCount", "edge_follow"),
		ProfilePicURL: profilePic,
	}

	if profile.Username == "" && profile.FullName == "" {
		return nil
	}
	return profile
}

func logUnresolvedProfile(log logger.Logger, username string, status int) {
	fields := map[string]interface{}{
		"username": username,
		"status":   status,
	}
	if status == http.StatusTooManyRequests {
		log.WarnWithFields("profile lookup rate limited", fields)
		return
	}
	log.InfoWithFields("profile not resolvable", fields)
}

// NewProfileResolver builds the resolver for the configured strategy name.
// Unknown names fall back to the web profile strategy.
func NewProfileResolver(strategy string, client *Client, delay time.Duration, log logger.Logger) ProfileResolver {
	if strategy == "search" {
		return NewSearchProfileResolver(client, delay, log)
	}
	return NewWebProfileResolver(client, delay, log)
}
