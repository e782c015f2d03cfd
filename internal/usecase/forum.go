package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"FinDash/internal/domain/models"
	domrepo "FinDash/internal/domain/repository"
	"FinDash/internal/runner"
)

// Forum sort orders.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// ForumQuery selects one page of posts.
type ForumQuery struct {
	Category string
	Text     string
	Sort     string
	Page     int
	PageSize int
}

// QueryPosts filters, sorts and paginates posts without touching the input slice.
// Category matches case-insensitively; Text matches title or body case-insensitively.
func QueryPosts(posts []models.ForumPost, q ForumQuery) models.ForumPage {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))

	filtered := make([]models.ForumPost, 0, len(posts))
	for _, p := range posts {
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Body), text) {
			continue
		}
		filtered = append(filtered, p)
	}

	switch q.Sort {
	case SortOldest:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		})
	case SortPopular:
		sort.SliceStable(filtered, func(i, j int) bool {
			if filtered[i].Score != filtered[j].Score {
				return filtered[i].Score > filtered[j].Score
			}
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})
	default:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})
	}

	page := models.ForumPage{
		Posts:    []models.ForumPost{},
		Total:    len(filtered),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	// compare before multiplying so huge page numbers cannot overflow
	if q.Page-1 >= (len(filtered)+q.PageSize-1)/q.PageSize {
		return page
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, len(filtered))
	page.Posts = filtered[start:end]
	return page
}

// ForumUseCase serves forum pages from the preloaded snapshot, falling back to the source.
type ForumUseCase struct {
	source    domrepo.ForumSource
	preloader *runner.Preloader
}

func NewForumUseCase(source domrepo.ForumSource, preloader *runner.Preloader) *ForumUseCase {
	return &ForumUseCase{source: source, preloader: preloader}
}

func (uc *ForumUseCase) Posts(ctx context.Context, q ForumQuery) (models.ForumPage, error) {
	if uc.preloader != nil {
		if posts, ok := runner.PreloadValue[[]models.ForumPost](uc.preloader.State(), LoaderForum); ok {
			return QueryPosts(posts, q), nil
		}
	}
	posts, err := uc.source.ForumPosts(ctx)
	if err != nil {
		return models.ForumPage{}, fmt.Errorf("forum posts: %w", err)
	}
	return QueryPosts(posts, q), nil
}
