package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinDash/internal/domain/models"
)

func samplePosts() []models.ForumPost {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.ForumPost{
		{ID: "1", Title: "AAPL earnings", Body: "beat", Category: "stocks", Score: 5, CreatedAt: base},
		{ID: "2", Title: "Bond ladder", Body: "treasuries and aapl", Category: "bonds", Score: 9, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Title: "Rebalancing", Body: "quarterly", Category: "Stocks", Score: 9, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Title: "Index funds", Body: "low fees", Category: "stocks", Score: 1, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(posts []models.ForumPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestQueryPosts_SortOrders(t *testing.T) {
	posts := samplePosts()

	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(QueryPosts(posts, ForumQuery{Sort: SortNewest}).Posts))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(QueryPosts(posts, ForumQuery{Sort: SortOldest}).Posts))
	// equal scores fall back to newest first
	assert.Equal(t, []string{"3", "2", "1", "4"}, ids(QueryPosts(posts, ForumQuery{Sort: SortPopular}).Posts))
}

func TestQueryPosts_FilterAndPaginate(t *testing.T) {
	posts := samplePosts()

	page := QueryPosts(posts, ForumQuery{Category: "STOCKS", Sort: SortOldest, Page: 2, PageSize: 2})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"4"}, ids(page.Posts))

	page = QueryPosts(posts, ForumQuery{Text: "AAPL"})
	assert.Equal(t, 2, page.Total, "matches title or body")

	page = QueryPosts(posts, ForumQuery{Page: 9, PageSize: 2})
	assert.Equal(t, 4, page.Total)
	assert.Empty(t, page.Posts)
	assert.NotNil(t, page.Posts)
}

func TestQueryPosts_HugePageIsEmpty(t *testing.T) {
	posts := samplePosts()

	page := QueryPosts(posts, ForumQuery{Page: math.MaxInt, PageSize: 20})
	assert.Equal(t, 4, page.Total)
	assert.Empty(t, page.Posts)

	page = QueryPosts(posts, ForumQuery{Page: math.MaxInt / 2, PageSize: 100})
	assert.Empty(t, page.Posts)

	page = QueryPosts(nil, ForumQuery{Page: 1, PageSize: 20})
	assert.Empty(t, page.Posts)
}

func TestQueryPosts_DoesNotMutateInput(t *testing.T) {
	posts := samplePosts()
	QueryPosts(posts, ForumQuery{Sort: SortPopular})
	assert.Equal(t, samplePosts(), posts)
}

type stubForum struct {
	posts []models.ForumPost
	err   error
	calls int
}

func (s *stubForum) ForumPosts(context.Context) ([]models.ForumPost, error) {
	s.calls++
	return s.posts, s.err
}

func TestForumUseCase_FallsBackToSource(t *testing.T) {
	src := &stubForum{posts: samplePosts()}
	uc := NewForumUseCase(src, nil)

	page, err := uc.Posts(context.Background(), ForumQuery{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, src.calls)

	src.err = errors.New("forum down")
	_, err = uc.Posts(context.Background(), ForumQuery{})
	assert.ErrorContains(t, err, "forum down")
}
