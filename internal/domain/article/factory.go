package article

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds an Article from the incoming DTO. The author
// reference is set here once and never changes afterwards.
func NewFromCreateRequest(req CreateArticleRequest, authorID string, media NewMedia) Article {
	now := time.Now().UTC()

	a := Article{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Tags:      req.Tags,
		Images:    media.Images,
		Videos:    media.Videos,
		AuthorID:  authorID,
		Published: req.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Published {
		a.PublishedAt = &now
	}

	return a
}

func NewComment(articleID, userID, text string) Comment {
	return Comment{
		ID:        uuid.NewString(),
		ArticleID: articleID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
