package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	// BaseURL is the web host used for canonical URLs and GraphQL queries.
	BaseURL = "https://www.instagram.com"

	// APIBaseURL is the mobile API host used for per-item endpoints.
	APIBaseURL = "https://i.instagram.com/api/v1"

	// CommentsQueryHash identifies the GraphQL comments query.
	CommentsQueryHash = "97b41c52301f77ce508f55e66d17620e"

	// MaxPageSize is the largest page the comments endpoints accept.
	MaxPageSize = 50

	appID       = "936619743392459"
	asbdID      = "198387"
	wwwClaim    = "0"
)

// CommentsURL builds the mobile-API comments endpoint for a media item.
func CommentsURL(mediaPK int64, params url.Values) string {
	return fmt.Sprintf("%s/media/%d/comments/?%s", APIBaseURL, mediaPK, params.Encode())
}

// GraphQLCommentsURL builds the GraphQL comments query for a shortcode.
// A non-empty cursor is passed as the "after" variable.
func GraphQLCommentsURL(shortcode, cursor string, first int) string {
	variables := map[string]interface{}{
		"shortcode": shortcode,
		"first":     first,
	}
	if cursor != "" {
		variables["after"] = cursor
	}
	encoded, _ := json.Marshal(variables)

	params := url.Values{}
	params.Set("query_hash", CommentsQueryHash)
	params.Set("variables", string(encoded))

	return fmt.Sprintf("%s/graphql/query/?%s", BaseURL, params.Encode())
}

// MediaInfoURL builds the per-item info endpoint.
func MediaInfoURL(mediaPK int64) string {
	return fmt.Sprintf("%s/media/%d/info/", APIBaseURL, mediaPK)
}

// WebProfileURL builds the single-endpoint profile lookup keyed by username.
func WebProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s/api/v1/users/web_profile_info/?%s", BaseURL, params.Encode())
}

// TopSearchURL builds the account search endpoint used by the two-hop
// profile lookup to resolve a username to a stable numeric id.
func TopSearchURL(query string) string {
	params := url.Values{}
	params.Set("context", "blended")
	params.Set("query", query)
	return fmt.Sprintf("%s/web/search/topsearch/?%s", BaseURL, params.Encode())
}

// UserInfoURL builds the fetch-by-id profile endpoint.
func UserInfoURL(userID int64) string {
	return fmt.Sprintf("%s/users/%d/info/", APIBaseURL, userID)
}

// PostURL returns the public page URL for a shortcode, used as a referer.
func PostURL(shortcode string) string {
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// ProfilePageURL returns the public page URL for a username, used as a referer.
func ProfilePageURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// apiHeaders builds the spoofed header set sent with every JSON request.
func apiHeaders(userAgent, referer string) map[string]string {
	return map[string]string{
		"User-Agent":       userAgent,
		"Accept":           "application/json, text/plain, */*",
		"Referer":          referer,
		"Origin":           BaseURL,
		"X-IG-App-ID":      appID,
		"X-IG-WWW-Claim":   wwwClaim,
		"X-ASBD-ID":        asbdID,
		"X-Requested-With": "XMLHttpRequest",
	}
}
