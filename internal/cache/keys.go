package cache

import "fmt"

// Cache key patterns:
// - post:{post_id} - single post, 300s TTL
// - posts:{page}:{limit} - paginated listing, 300s TTL
// - search:{query} - search results, 300s TTL

const (
	PostPrefix   = "post:"
	PostsPrefix  = "posts:"
	SearchPrefix = "search:"
)

// PostKey is the key for a single post.
func PostKey(postID string) string {
	return PostPrefix + postID
}

// PostsPageKey is the key for one page of the post listing.
func PostsPageKey(page, limit int) string {
	return fmt.Sprintf("%s%d:%d", PostsPrefix, page, limit)
}

// SearchKey is the key for one search query's results.
func SearchKey(query string) string {
	return SearchPrefix + query
}
