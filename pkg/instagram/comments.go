package instagram

import (
	"net/url"
	"strconv"
	"time"

	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/payload"
)

// Pagination dialects spoken by the comments endpoint.
const (
	modeAPIV1   = "api_v1"
	modeGraphQL = "graphql"
)

// Cursor kinds, naming the dimension a cursor pages along.
const (
	cursorMaxID = "max_id"
	cursorMinID = "min_id"
	cursorAfter = "after"
)

// pageState carries the pagination state machine between page requests.
type pageState struct {
	mode       string
	cursor     string
	cursorKind string
}

// CommentFetcher extends a post's comment set beyond what the extractor
// returned, paginating the comments endpoint across its two dialects.
type CommentFetcher struct {
	client *Client
	logger logger.Logger
}

// NewCommentFetcher creates a comment fetcher on top of the shared client.
func NewCommentFetcher(client *Client, log logger.Logger) *CommentFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &CommentFetcher{client: client, logger: log}
}

// FetchComments retrieves up to limit comments for the shortcode, skipping
// ids already present in existingIDs. The returned slice contains only new,
// de-duplicated comments. A zero limit or empty shortcode short-circuits to
// an empty result without issuing any request.
func (f *CommentFetcher) FetchComments(shortcode string, limit int, existingIDs []string) ([]models.Comment, error) {
	if shortcode == "" || limit <= 0 {
		f.logger.DebugWithFields("skipping comment fetch", map[string]interface{}{
			"shortcode": shortcode,
			"limit":     limit,
		})
		return nil, nil
	}

	seen := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		if id != "" {
			seen[id] = true
		}
	}
	if len(seen) >= limit {
		f.logger.DebugWithFields("existing comments already satisfy limit", map[string]interface{}{
			"shortcode": shortcode,
			"limit":     limit,
		})
		return nil, nil
	}

	mediaPK, err := ShortcodeToMediaPK(shortcode)
	if err != nil {
		return nil, errors.Newf(errors.KindCommentFetch,
			"cannot derive media identifier from shortcode %q: %v", shortcode, err)
	}

	return f.collect(mediaPK, shortcode, seen, limit)
}

func (f *CommentFetcher) collect(mediaPK int64, shortcode string, seen map[string]bool, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	state := pageState{mode: modeAPIV1}

	for len(seen) < limit {
		page, err := f.fetchPage(mediaPK, shortcode, state, limit-len(seen))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, node := range extractCommentNodes(page) {
			comment, ok := buildComment(node)
			if !ok || seen[comment.ID] {
				continue
			}
			comments = append(comments, comment)
			seen[comment.ID] = true
			if len(seen) >= limit {
				break
			}
		}

		next, hasMore := nextPageState(page, state)
		if !hasMore || next.cursor == "" {
			break
		}
		state = next
	}

	f.logger.DebugWithFields("comment enrichment finished", map[string]interface{}{
		"shortcode": shortcode,
		"fetched":   len(comments),
	})
	return comments, nil
}

func (f *CommentFetcher) fetchPage(mediaPK int64, shortcode string, state pageState, remaining int) (payload.RawPayload, error) {
	pageSize := remaining
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var endpoint string
	if state.mode == modeGraphQL {
		endpoint = GraphQLCommentsURL(shortcode, state.cursor, pageSize)
	} else {
		params := url.Values{}
		params.Set("can_support_threading", "true")
		params.Set("permalink_enabled", "false")
		params.Set("page_size", strconv.Itoa(pageSize))
		if state.cursor != "" {
			if state.cursorKind == cursorMinID {
				params.Set("min_id", state.cursor)
			} else {
				params.Set("max_id", state.cursor)
			}
		}
		endpoint = CommentsURL(mediaPK, params)
	}

	f.logger.DebugWithFields("requesting comments page", map[string]interface{}{
		"shortcode":   shortcode,
		"mode":        state.mode,
		"cursor_kind": state.cursorKind,
		"page_size":   pageSize,
	})

	var page payload.RawPayload
	status, err := f.client.GetJSON(endpoint, PostURL(shortcode), &page)
	if err != nil {
		return nil, errors.Wrap(errors.KindCommentFetch, "comments request failed", err)
	}
	if status < 200 || status >= 300 {
		f.logger.WarnWithFields("comments endpoint returned error status", map[string]interface{}{
			"shortcode": shortcode,
			"mode":      state.mode,
			"status":    status,
		})
		return nil, errors.Newf(errors.KindCommentFetch,
			"comments endpoint responded with status %d", status)
	}

	return page, nil
}

// extractCommentNodes probes the known container shapes in order: a
// GraphQL-shaped edge/node container, a nested data.shortcode_media
// container, a mobile-API container, then a flat comments list whose
// entries may themselves wrap a node.
func extractCommentNodes(page payload.RawPayload) []payload.RawPayload {
	var nodes []payload.RawPayload

	if container := locateCommentContainer(page); container != nil {
		for _, entry := range container.List("edges") {
			edge, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			nodes = append(nodes, unwrapNode(payload.RawPayload(edge)))
		}
		return nodes
	}

	for _, entry := range page.List("comments") {
		raw, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		nodes = append(nodes, unwrapNode(payload.RawPayload(raw)))
	}
	return nodes
}

func unwrapNode(entry payload.RawPayload) payload.RawPayload {
	if node := entry.Map("node"); node != nil {
		return node
	}
	return entry
}

func locateCommentContainer(page payload.RawPayload) payload.RawPayload {
	if direct := page.Map("edge_media_to_parent_comment"); direct != nil {
		return direct
	}

	if data := page.Map("data"); data != nil {
		if media := data.Map("shortcode_media"); media != nil {
			if container := media.Map("edge_media_to_parent_comment"); container != nil {
				return container
			}
		}
	}

	if apiV1 := page.Map("xdt_api__v1__media__comments"); apiV1 != nil {
		return apiV1
	}

	return nil
}

// buildComment converts a comment node to a typed comment. Nodes lacking
// both an id and a pk are silently dropped.
func buildComment(node payload.RawPayload) (models.Comment, bool) {
	id := stringify(node["id"])
	if id == "" {
		id = stringify(node["pk"])
	}
	if id == "" {
		return models.Comment{}, false
	}

	owner := node.Map("owner")
	if owner == nil {
		owner = node.Map("user")
	}
	var username string
	if owner != nil {
		username = owner.String("username")
	}

	text := node.String("text")
	if text == "" {
		text = node.String("body")
	}

	var likeCount int64
	likeSources := []interface{}{
		nestedCount(node, "edge_liked_by"),
		node["comment_like_count"],
		node["like_count"],
	}
	for _, source := range likeSources {
		if n := payload.DecodeInt(source); n != nil && *n != 0 {
			likeCount = *n
			break
		}
	}

	createdAt := firstTimestamp(node,
		"created_at", "created_at_utc", "created_at_timestamp", "created_time")

	return models.Comment{
		ID:        id,
		Username:  username,
		Text:      text,
		LikeCount: likeCount,
		CreatedAt: createdAt,
	}, true
}

func nestedCount(node payload.RawPayload, key string) interface{} {
	if m := node.Map(key); m != nil {
		return m["count"]
	}
	return nil
}

func firstTimestamp(node payload.RawPayload, keys ...string) *time.Time {
	for _, key := range keys {
		if t := payload.DecodeTimestamp(node[key]); t != nil {
			return t
		}
	}
	return nil
}

// nextPageState determines the pagination state for the following request.
// A GraphQL-shaped page_info with a usable end_cursor wins; otherwise the
// api_v1 next_max_id/next_min_id markers are inspected together with their
// has_more flags; otherwise pagination ends.
func nextPageState(page payload.RawPayload, current pageState) (pageState, bool) {
	if container := locateCommentContainer(page); container != nil {
		if pageInfo := container.Map("page_info"); pageInfo != nil {
			endCursor := stringify(pageInfo["end_cursor"])
			hasNext, _ := pageInfo["has_next_page"].(bool)
			if endCursor != "" && hasNext {
				return pageState{mode: modeGraphQL, cursor: endCursor, cursorKind: cursorAfter}, true
			}
		}
	}

	hasMoreComments, hasMoreCommentsSet := page["has_more_comments"].(bool)
	hasMoreHeadload, hasMoreHeadloadSet := page["has_more_headload_comments"].(bool)

	if nextMaxID := stringify(page["next_max_id"]); nextMaxID != "" {
		hasMore := true
		if hasMoreCommentsSet {
			hasMore = hasMoreComments
		} else if hasMoreHeadloadSet {
			hasMore = hasMoreHeadload
		}
		return pageState{mode: modeAPIV1, cursor: nextMaxID, cursorKind: cursorMaxID}, hasMore
	}

	if nextMinID := stringify(page["next_min_id"]); nextMinID != "" {
		hasMore := true
		if hasMoreHeadloadSet {
			hasMore = hasMoreHeadload
		} else if hasMoreCommentsSet {
			hasMore = hasMoreComments
		}
		return pageState{mode: modeAPIV1, cursor: nextMinID, cursorKind: cursorMinID}, hasMore
	}

	return pageState{mode: current.mode}, false
}

// stringify renders scalar id/cursor values, which arrive as either strings
// or numbers depending on the dialect.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
