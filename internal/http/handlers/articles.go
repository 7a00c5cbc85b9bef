package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressflow/newsroom/internal/authz"
	"github.com/pressflow/newsroom/internal/cache"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/domain/article"
	"github.com/pressflow/newsroom/internal/http/middlewares"
	"github.com/pressflow/newsroom/internal/media"
)

type ArticleStore interface {
	Create(ctx context.Context, a article.Article) (article.Article, error)
	GetByID(ctx context.Context, id string) (article.Article, error)
	List(ctx context.Context, limit, offset int) ([]article.Article, int, error)
	FindByCategory(ctx context.Context, category string) ([]article.Article, error)
	Update(ctx context.Context, id string, req article.UpdateArticleRequest, m article.NewMedia) (article.Article, error)
	GetAuthorID(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, c article.Comment) (article.Comment, error)
	ListComments(ctx context.Context, articleID string) ([]article.Comment, error)
}

type ArticlesHandler struct {
	store ArticleStore
	files media.Store
	cache *cache.ArticlesCache
}

func NewArticlesHandler(store ArticleStore, files media.Store, articlesCache *cache.ArticlesCache) *ArticlesHandler {
	return &ArticlesHandler{
		store: store,
		files: files,
		cache: articlesCache,
	}
}

const (
	defaultPage  = 1
	defaultLimit = 10
	// abuse guard; defaults and ordinary requests are unaffected
	maxLimit = 100
)

// parsePagination: absent or non-numeric values fall back to the defaults.
func parsePagination(ctx *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(ctx.Query("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}

	limit, err = strconv.Atoi(ctx.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit
}

func (h *ArticlesHandler) CreateArticle(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req article.CreateArticleRequest

	if !BindForm(ctx, &req) {
		return
	}

	newMedia, ok := h.collectMedia(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, err := h.store.Create(cctx, article.NewFromCreateRequest(req, id.UserID, newMedia))
	if err != nil {
		RespondInternal(ctx, "Could not create article")
		return
	}

	h.cache.Invalidate(ctx.Request.Context())

	ctx.JSON(http.StatusCreated, gin.H{"article": a})
}

func (h *ArticlesHandler) ListArticles(ctx *gin.Context) {
	page, limit := parsePagination(ctx)

	if body, ok := h.cache.GetPage(ctx.Request.Context(), page, limit); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.store.List(cctx, limit, (page-1)*limit)
	if err != nil {
		RespondInternal(ctx, "Could not list articles")
		return
	}

	resp := article.ListPage{
		Items:      items,
		Page:       page,
		TotalItems: total,
		TotalPages: (total + limit - 1) / limit,
	}

	if body, err := json.Marshal(resp); err == nil {
		h.cache.SetPage(ctx.Request.Context(), page, limit, body)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *ArticlesHandler) GetArticleByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, err := h.store.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not fetch article")
		return
	}

	ctx.JSON(http.StatusOK, a)
}

// FilterByCategory matches the whole category string, case-insensitively.
// An empty result set is a 404 by contract.
func (h *ArticlesHandler) FilterByCategory(ctx *gin.Context) {
	category := strings.TrimSpace(ctx.Query("category"))
	if category == "" {
		RespondBadRequest(ctx, "Category is required", nil)
		return
	}

	cacheKey := strings.ToLower(category)

	if body, ok := h.cache.GetCategory(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.store.FindByCategory(cctx, category)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "No articles found for category: "+category)
			return
		}
		RespondInternal(ctx, "Could not fetch articles")
		return
	}

	resp := gin.H{"items": items, "count": len(items)}

	if body, err := json.Marshal(resp); err == nil {
		h.cache.SetCategory(ctx.Request.Context(), cacheKey, body)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *ArticlesHandler) UpdateArticle(ctx *gin.Context) {
	var req article.UpdateArticleRequest

	if !BindForm(ctx, &req) {
		return
	}

	newMedia, ok := h.collectMedia(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, err := h.store.Update(cctx, ctx.Param("id"), req, newMedia)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not update article")
		return
	}

	h.cache.Invalidate(ctx.Request.Context())

	ctx.JSON(http.StatusOK, gin.H{"article": a})
}

// DeleteArticle enforces the author-only rule. The ownership check runs
// before the delete so a denied request has no effect.
func (h *ArticlesHandler) DeleteArticle(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	articleID := ctx.Param("id")

	authorID, err := h.store.GetAuthorID(cctx, articleID)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not delete article")
		return
	}

	if err := authz.RequireAuthor(authorID, id); err != nil {
		RespondForbidden(ctx, "You are not authorized to delete this article")
		return
	}

	if err := h.store.Delete(cctx, articleID); err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not delete article")
		return
	}

	h.cache.Invalidate(ctx.Request.Context())

	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *ArticlesHandler) AddComment(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req article.AddCommentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		RespondBadRequest(ctx, "Comment text is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.store.AddComment(cctx, article.NewComment(ctx.Param("id"), id.UserID, text))
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not add comment")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"comment": c})
}

func (h *ArticlesHandler) ListComments(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	comments, err := h.store.ListComments(cctx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not fetch comments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": comments, "count": len(comments)})
}

// collectMedia validates and stores the uploads of a multipart request.
// A plain form body without files is fine and yields empty lists.
func (h *ArticlesHandler) collectMedia(ctx *gin.Context) (article.NewMedia, bool) {
	form, err := ctx.MultipartForm()
	if err != nil {
		// not a multipart request
		return article.NewMedia{}, true
	}

	images := form.File["images"]
	videos := form.File["videos"]

	if len(images) == 0 && len(videos) == 0 {
		return article.NewMedia{}, true
	}

	if err := media.ValidateUpload(images, videos); err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return article.NewMedia{}, false
	}

	cctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	imagePaths, err := media.SaveAll(cctx, h.files, images)
	if err != nil {
		RespondInternal(ctx, "Could not store uploads")
		return article.NewMedia{}, false
	}

	videoPaths, err := media.SaveAll(cctx, h.files, videos)
	if err != nil {
		RespondInternal(ctx, "Could not store uploads")
		return article.NewMedia{}, false
	}

	return article.NewMedia{Images: imagePaths, Videos: videoPaths}, true
}
