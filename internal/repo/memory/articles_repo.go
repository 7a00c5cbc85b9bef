package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pressflow/newsroom/internal/domain/article"
)

// In-memory articles store mirroring the Postgres repo contract. Appends
// (comments, media) happen under the lock as one step, matching the
// atomic-append guarantee of the SQL layer.
type ArticlesRepo struct {
	mu    sync.RWMutex
	items map[string]article.Article
}

func NewArticlesRepo() *ArticlesRepo {
	return &ArticlesRepo{
		items: make(map[string]article.Article),
	}
}

func (r *ArticlesRepo) Create(ctx context.Context, a article.Article) (article.Article, error) {
	r.mu.Lock()
	r.items[a.ID] = a
	r.mu.Unlock()

	return a, nil
}

func (r *ArticlesRepo) GetByID(ctx context.Context, id string) (article.Article, error) {
	r.mu.RLock()
	a, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return article.Article{}, article.ErrNotFound
	}

	return a, nil
}

func (r *ArticlesRepo) List(ctx context.Context, limit, offset int) ([]article.Article, int, error) {
	r.mu.RLock()
	all := make([]article.Article, 0, len(r.items))
	for _, a := range r.items {
		all = append(all, a)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)

	if offset >= total {
		return []article.Article{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return all[offset:end], total, nil
}

func (r *ArticlesRepo) FindByCategory(ctx context.Context, category string) ([]article.Article, error) {
	r.mu.RLock()
	out := make([]article.Article, 0)
	for _, a := range r.items {
		if strings.EqualFold(a.Category, category) {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	if len(out) == 0 {
		return nil, article.ErrNotFound
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (r *ArticlesRepo) Update(ctx context.Context, id string, req article.UpdateArticleRequest, media article.NewMedia) (article.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}

	a.ApplyUpdate(req, media, time.Now().UTC())
	r.items[id] = a

	return a, nil
}

func (r *ArticlesRepo) GetAuthorID(ctx context.Context, id string) (string, error) {
	r.mu.RLock()
	a, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return "", article.ErrNotFound
	}

	return a.AuthorID, nil
}

func (r *ArticlesRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return article.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *ArticlesRepo) AddComment(ctx context.Context, c article.Comment) (article.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[c.ArticleID]
	if !ok {
		return article.Comment{}, article.ErrNotFound
	}

	a.Comments = append(a.Comments, c)
	r.items[c.ArticleID] = a

	return c, nil
}

func (r *ArticlesRepo) ListComments(ctx context.Context, articleID string) ([]article.Comment, error) {
	r.mu.RLock()
	a, ok := r.items[articleID]
	r.mu.RUnlock()

	if !ok {
		return nil, article.ErrNotFound
	}

	out := make([]article.Comment, len(a.Comments))
	copy(out, a.Comments)

	return out, nil
}
