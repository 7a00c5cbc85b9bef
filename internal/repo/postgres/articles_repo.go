package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressflow/newsroom/internal/domain/article"
	"github.com/pressflow/newsroom/internal/observability"
)

type ArticlesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewArticlesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ArticlesRepo {
	return &ArticlesRepo{pool: pool, prom: prom}
}

func (r *ArticlesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Media lives in article_media rows so that appends are single INSERTs:
// two concurrent uploads to the same article never clobber each other.
// Same story for comments in article_comments.

const articleColumns = `a.id,
				 a.title,
				 a.content,
				 a.category,
				 a.tags,
				 a.author_id,
				 u.name,
				 u.email,
				 a.published,
				 a.published_at,
				 a.created_at,
				 a.updated_at,
				 COALESCE((SELECT array_agg(m.path ORDER BY m.seq)
									 FROM article_media m
									 WHERE m.article_id = a.id AND m.kind = 'image'), '{}'),
				 COALESCE((SELECT array_agg(m.path ORDER BY m.seq)
									 FROM article_media m
									 WHERE m.article_id = a.id AND m.kind = 'video'), '{}')`

const articleFrom = `
	FROM articles a
	JOIN users u ON u.id = a.author_id
`

const articleSelect = `SELECT ` + articleColumns + articleFrom

// extra window-count column has to sit in the select list, before FROM
const listArticlesSQL = `SELECT ` + articleColumns + `,
				 COUNT(*) OVER() AS total` + articleFrom + `
	ORDER BY a.created_at DESC, a.id DESC
	LIMIT $1 OFFSET $2`

func scanArticle(row pgx.Row, extra ...any) (article.Article, error) {
	var a article.Article

	dest := []any{
		&a.ID,
		&a.Title,
		&a.Content,
		&a.Category,
		&a.Tags,
		&a.AuthorID,
		&a.AuthorName,
		&a.AuthorEmail,
		&a.Published,
		&a.PublishedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Images,
		&a.Videos,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return article.Article{}, article.ErrNotFound
		}
		return article.Article{}, err
	}

	return a, nil
}

func (r *ArticlesRepo) Create(ctx context.Context, a article.Article) (article.Article, error) {
	err := r.observe("articles.create", func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO articles (id, title, content, category, tags, author_id, published, published_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			a.ID, a.Title, a.Content, a.Category, a.Tags, a.AuthorID, a.Published, a.PublishedAt, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if err := insertMedia(ctx, tx, a.ID, "image", a.Images); err != nil {
			return err
		}
		if err := insertMedia(ctx, tx, a.ID, "video", a.Videos); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return article.Article{}, err
	}

	return a, nil
}

func insertMedia(ctx context.Context, tx pgx.Tx, articleID, kind string, paths []string) error {
	for _, p := range paths {
		_, err := tx.Exec(ctx,
			`INSERT INTO article_media (article_id, kind, path) VALUES ($1, $2, $3)`,
			articleID, kind, p,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ArticlesRepo) GetByID(ctx context.Context, id string) (article.Article, error) {
	var a article.Article

	err := r.observe("articles.get_by_id", func() error {
		var err error
		a, err = scanArticle(r.pool.QueryRow(ctx, articleSelect+` WHERE a.id = $1`, id))
		return err
	})
	if err != nil {
		return article.Article{}, err
	}

	comments, err := r.ListComments(ctx, id)
	if err != nil {
		return article.Article{}, err
	}
	a.Comments = comments

	return a, nil
}

// List returns one page ordered by creation time descending, newest first,
// plus the total row count for pagination metadata.
func (r *ArticlesRepo) List(ctx context.Context, limit, offset int) ([]article.Article, int, error) {
	out := make([]article.Article, 0, limit)
	total := 0

	err := r.observe("articles.list", func() error {
		rows, err := r.pool.Query(ctx, listArticlesSQL, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t int
			a, err := scanArticle(rows, &t)
			if err != nil {
				return err
			}
			total = t
			out = append(out, a)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		// when the page is past the end the window count is gone with the rows
		if len(out) == 0 {
			return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&total)
		}

		return nil
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// FindByCategory is an exact, case-insensitive match. An empty result set
// is a not-found by contract, not an empty success.
func (r *ArticlesRepo) FindByCategory(ctx context.Context, category string) ([]article.Article, error) {
	out := make([]article.Article, 0)

	err := r.observe("articles.find_by_category", func() error {
		rows, err := r.pool.Query(ctx,
			articleSelect+`
			WHERE LOWER(a.category) = LOWER($1)
			ORDER BY a.created_at DESC, a.id DESC`,
			category,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanArticle(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, article.ErrNotFound
	}

	return out, nil
}

// Update applies a partial change. published_at is stamped inside the same
// statement on the first unpublished->published flip and never after, so the
// first-publish time survives later toggles.
func (r *ArticlesRepo) Update(ctx context.Context, id string, req article.UpdateArticleRequest, media article.NewMedia) (article.Article, error) {
	err := r.observe("articles.update", func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx,
			`UPDATE articles
				SET title = COALESCE($2, title),
						content = COALESCE($3, content),
						category = COALESCE($4, category),
						tags = COALESCE($5, tags),
						published_at = CASE
							WHEN $6::boolean IS TRUE AND NOT published AND published_at IS NULL THEN NOW()
							ELSE published_at
						END,
						published = COALESCE($6, published),
						updated_at = NOW()
			WHERE id = $1`,
			id, req.Title, req.Content, req.Category, req.Tags, req.Published,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return article.ErrNotFound
		}

		if err := insertMedia(ctx, tx, id, "image", media.Images); err != nil {
			return err
		}
		if err := insertMedia(ctx, tx, id, "video", media.Videos); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return article.Article{}, err
	}

	return r.GetByID(ctx, id)
}

// GetAuthorID exists so the ownership check runs before any deletion.
func (r *ArticlesRepo) GetAuthorID(ctx context.Context, id string) (string, error) {
	var authorID string

	err := r.observe("articles.get_author", func() error {
		err := r.pool.QueryRow(ctx, `SELECT author_id FROM articles WHERE id = $1`, id).Scan(&authorID)
		if errors.Is(err, pgx.ErrNoRows) {
			return article.ErrNotFound
		}
		return err
	})

	if err != nil {
		return "", err
	}

	return authorID, nil
}

func (r *ArticlesRepo) Delete(ctx context.Context, id string) error {
	return r.observe("articles.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return article.ErrNotFound
		}
		return nil
	})
}

// AddComment is a single atomic INSERT; concurrent appends to the same
// article both land, in commit order. A missing article surfaces as the FK
// violation and maps back to not-found.
func (r *ArticlesRepo) AddComment(ctx context.Context, c article.Comment) (article.Comment, error) {
	err := r.observe("comments.add", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO article_comments (id, article_id, user_id, body, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING COALESCE((SELECT name FROM users WHERE id = $3), ''),
								 COALESCE((SELECT email FROM users WHERE id = $3), '')`,
			c.ID, c.ArticleID, c.UserID, c.Text, c.CreatedAt,
		).Scan(&c.UserName, &c.UserEmail)
	})

	if err != nil {
		if isFKViolation(err) {
			return article.Comment{}, article.ErrNotFound
		}
		return article.Comment{}, err
	}

	return c, nil
}

func (r *ArticlesRepo) ListComments(ctx context.Context, articleID string) ([]article.Comment, error) {
	out := make([]article.Comment, 0)

	err := r.observe("comments.list", func() error {
		var exists bool

		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, articleID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return article.ErrNotFound
		}

		rows, err := r.pool.Query(ctx,
			`SELECT c.id, c.article_id, c.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''), c.body, c.created_at
			 FROM article_comments c
			 LEFT JOIN users u ON u.id = c.user_id
			 WHERE c.article_id = $1
			 ORDER BY c.seq ASC`,
			articleID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c article.Comment

			err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.UserName, &c.UserEmail, &c.Text, &c.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
