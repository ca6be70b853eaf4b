package entity

import "time"

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CID       string    `json:"cid"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentBody is the blob stored in the content store for each comment.
type CommentBody struct {
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeState is the like status of a post after a toggle.
type LikeState struct {
	PostID string `json:"post_id"`
	Liked  bool   `json:"liked"`
	Likes  int    `json:"likes"`
}
