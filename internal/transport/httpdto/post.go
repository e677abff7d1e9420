package httpdto

// CreatePostRequest is used for POST /posts
type CreatePostRequest struct {
	Content  string   `json:"content" binding:"required"`
	MediaIDs []string `json:"mediaIds,omitempty"`
}
