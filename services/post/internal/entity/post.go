package entity

import "time"

// Post is a post as returned by the API. The contract holds the index
// (id, author, content reference, likes); Content and ImageCID come from the
// content blob.
type Post struct {
	ID            string    `json:"id"`
	Author        string    `json:"author"`
	AuthorAddress string    `json:"author_address"`
	ContentCID    string    `json:"content_cid"`
	Content       string    `json:"content"`
	ImageCID      string    `json:"image_cid,omitempty"`
	Likes         int64     `json:"likes"`
	CreatedAt     time.Time `json:"created_at"`
	// ContentMissing is set when the blob could not be fetched from any
	// gateway.
	ContentMissing bool `json:"content_missing,omitempty"`
}

// PostContent is the blob stored in the content store for each post.
type PostContent struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	ImageCID  string    `json:"image_cid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
