package article

import (
	"errors"
	"time"
)

type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Images      []string   `json:"images"`
	Videos      []string   `json:"videos"`
	AuthorID    string     `json:"authorId"`
	AuthorName  string     `json:"authorName,omitempty"`
	AuthorEmail string     `json:"authorEmail,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Comments    []Comment  `json:"comments,omitempty"`
}

// Comments are append-only: no edit, no delete, strict insertion order.
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNotFound  = errors.New("article not found")
	ErrForbidden = errors.New("not authorized for this article")
	ErrEmptyText = errors.New("comment text is required")
)

type CreateArticleRequest struct {
	Title     string   `form:"title" json:"title" binding:"required,min=3,max=200"`
	Content   string   `form:"content" json:"content" binding:"required"`
	Category  string   `form:"category" json:"category" binding:"required,min=2,max=60"`
	Tags      []string `form:"tags" json:"tags" binding:"omitempty,dive,max=40"`
	Published bool     `form:"published" json:"published"`
}

// Partial update: a nil field leaves the stored value unchanged.
type UpdateArticleRequest struct {
	Title     *string  `form:"title" json:"title" binding:"omitempty,min=3,max=200"`
	Content   *string  `form:"content" json:"content" binding:"omitempty"`
	Category  *string  `form:"category" json:"category" binding:"omitempty,min=2,max=60"`
	Tags      []string `form:"tags" json:"tags" binding:"omitempty,dive,max=40"`
	Published *bool    `form:"published" json:"published"`
}

// Stored-path references for uploads that happened during this request.
// On update these are appended to the existing lists, never replacing them.
type NewMedia struct {
	Images []string
	Videos []string
}

type AddCommentRequest struct {
	Text string `json:"comment" binding:"required"`
}

type ListPage struct {
	Items      []Article `json:"items"`
	Page       int       `json:"page"`
	TotalItems int       `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}

// ApplyUpdate merges a partial update into the article. The publish
// timestamp is "first publish time": the first false->true transition
// stamps it and later toggles never touch it again.
func (a *Article) ApplyUpdate(req UpdateArticleRequest, media NewMedia, now time.Time) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = *req.Content
	}
	if req.Category != nil {
		a.Category = *req.Category
	}
	if req.Tags != nil {
		a.Tags = req.Tags
	}
	a.Images = append(a.Images, media.Images...)
	a.Videos = append(a.Videos, media.Videos...)

	if req.Published != nil {
		if *req.Published && !a.Published && a.PublishedAt == nil {
			t := now
			a.PublishedAt = &t
		}
		a.Published = *req.Published
	}

	a.UpdatedAt = now
}
