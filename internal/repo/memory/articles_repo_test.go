package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressflow/newsroom/internal/domain/article"
	"github.com/pressflow/newsroom/internal/repo/memory"
)

func seedArticles(t *testing.T, repo *memory.ArticlesRepo, n int) []article.Article {
	t.Helper()

	out := make([]article.Article, 0, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		a := article.NewFromCreateRequest(article.CreateArticleRequest{
			Title:    fmt.Sprintf("Article %d", i),
			Content:  "body",
			Category: "General",
		}, "author-1", article.NewMedia{})
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)

		_, err := repo.Create(context.Background(), a)
		require.NoError(t, err)
		out = append(out, a)
	}

	return out
}

// item count == min(limit, max(0, total-(page-1)*limit)) for every page.
func TestListPaginationContract(t *testing.T) {
	repo := memory.NewArticlesRepo()
	seedArticles(t, repo, 23)

	const total = 23

	for page := 1; page <= 5; page++ {
		for _, limit := range []int{1, 7, 10, 25} {
			items, gotTotal, err := repo.List(context.Background(), limit, (page-1)*limit)
			require.NoError(t, err)

			assert.Equal(t, total, gotTotal)

			want := total - (page-1)*limit
			if want < 0 {
				want = 0
			}
			if want > limit {
				want = limit
			}
			assert.Len(t, items, want, "page=%d limit=%d", page, limit)
		}
	}
}

func TestListOrdering(t *testing.T) {
	repo := memory.NewArticlesRepo()
	seedArticles(t, repo, 5)

	items, _, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 5)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt), "newest first")
	}
}

func TestFindByCategory(t *testing.T) {
	repo := memory.NewArticlesRepo()

	a := article.NewFromCreateRequest(article.CreateArticleRequest{
		Title: "Match report", Content: "c", Category: "sports",
	}, "author-1", article.NewMedia{})
	_, err := repo.Create(context.Background(), a)
	require.NoError(t, err)

	b := article.NewFromCreateRequest(article.CreateArticleRequest{
		Title: "Roundup", Content: "c", Category: "Sports News",
	}, "author-1", article.NewMedia{})
	_, err = repo.Create(context.Background(), b)
	require.NoError(t, err)

	// exact case-insensitive match, not substring
	items, err := repo.FindByCategory(context.Background(), "Sports")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Match report", items[0].Title)

	items, err = repo.FindByCategory(context.Background(), "SPORTS")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = repo.FindByCategory(context.Background(), "finance")
	assert.ErrorIs(t, err, article.ErrNotFound, "empty result is not-found by contract")
}

func TestUpdateNotFound(t *testing.T) {
	repo := memory.NewArticlesRepo()

	_, err := repo.Update(context.Background(), "nope", article.UpdateArticleRequest{}, article.NewMedia{})
	assert.ErrorIs(t, err, article.ErrNotFound)
}

func TestAddCommentValidations(t *testing.T) {
	repo := memory.NewArticlesRepo()

	_, err := repo.AddComment(context.Background(), article.NewComment("missing-article", "u1", "hi"))
	assert.ErrorIs(t, err, article.ErrNotFound)
}

// Two concurrent appends to the same article must both land.
func TestConcurrentCommentAppends(t *testing.T) {
	repo := memory.NewArticlesRepo()
	a := seedArticles(t, repo, 1)[0]

	const writers = 20

	var wg sync.WaitGroup
	wg.Add(writers)

	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()

			_, err := repo.AddComment(context.Background(), article.NewComment(a.ID, "u1", fmt.Sprintf("comment %d", i)))
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	comments, err := repo.ListComments(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, comments, writers, "no comment may be lost to a race")
}

func TestConcurrentMediaAppends(t *testing.T) {
	repo := memory.NewArticlesRepo()
	a := seedArticles(t, repo, 1)[0]

	const writers = 10

	var wg sync.WaitGroup
	wg.Add(writers)

	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()

			_, err := repo.Update(context.Background(), a.ID, article.UpdateArticleRequest{}, article.NewMedia{
				Images: []string{fmt.Sprintf("img-%d.jpg", i)},
			})
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	got, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, writers)
}

func TestDeleteSemantics(t *testing.T) {
	repo := memory.NewArticlesRepo()
	a := seedArticles(t, repo, 1)[0]

	authorID, err := repo.GetAuthorID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "author-1", authorID)

	require.NoError(t, repo.Delete(context.Background(), a.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), a.ID), article.ErrNotFound)
}
