package listing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/domain"
)

type item struct {
	ID      string
	OwnerID string
	Title   string
	Views   int
	Created time.Time
	Owner   *domain.Owner
}

type staticOwners map[string]domain.Owner

func (s staticOwners) BatchGetOwners(_ context.Context, ids []string) (map[string]domain.Owner, error) {
	out := map[string]domain.Owner{}
	for _, id := range ids {
		if o, ok := s[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func makeItems(n int) []item {
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			ID:      fmt.Sprintf("i%02d", i),
			OwnerID: "u1",
			Title:   fmt.Sprintf("title %d", i),
			Views:   i,
			Created: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return items
}

func testQuery(items []item) Query[item] {
	return Query[item]{
		Resource: "test",
		Fetch:    func(context.Context) ([]item, error) { return items, nil },
		OwnerOf:  func(it item) string { return it.OwnerID },
		Attach:   func(it *item, o domain.Owner) { it.Owner = &o },
		Text: func(it item) []string {
			fields := []string{it.Title}
			if it.Owner != nil {
				fields = append(fields, it.Owner.Username, it.Owner.FullName)
			}
			return fields
		},
		SortKeys: map[string]func(a, b item) int{
			"createdAt": ByTime(func(it item) time.Time { return it.Created }),
			"views":     ByNumber(func(it item) int { return it.Views }),
			"title":     ByString(func(it item) string { return it.Title }),
		},
	}
}

var owners = staticOwners{
	"u1": {UserID: "u1", Username: "alice", FullName: "Alice Liddell"},
	"u2": {UserID: "u2", Username: "bob", FullName: "Bob Builder"},
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 5, TotalPages(47, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
}

func TestRun_PaginationArithmetic(t *testing.T) {
	p := Params{Page: 5, Limit: 10, SortBy: "createdAt", Asc: true}

	page, err := Run(context.Background(), testQuery(makeItems(47)), p, owners)
	require.NoError(t, err)

	assert.Equal(t, 47, page.TotalCount)
	assert.Equal(t, 5, page.TotalPages)
	assert.Equal(t, 5, page.CurrentPage)
	require.Len(t, page.Items, 7)
	assert.Equal(t, "i40", page.Items[0].ID)
	assert.Equal(t, "alice", page.Items[0].Owner.Username)
}

func TestRun_EmptyEnvelope(t *testing.T) {
	page, err := Run(context.Background(), testQuery(nil), Params{Page: 1, Limit: 10, SortBy: "createdAt"}, owners)
	require.NoError(t, err)

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, page.TotalCount)
}

func TestRun_PageBeyondEnd(t *testing.T) {
	page, err := Run(context.Background(), testQuery(makeItems(3)), Params{Page: 9, Limit: 10, SortBy: "createdAt"}, owners)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestRun_DefaultIsNewestFirst(t *testing.T) {
	page, err := Run(context.Background(), testQuery(makeItems(3)), Params{Page: 1, Limit: 10, SortBy: "createdAt"}, owners)
	require.NoError(t, err)
	assert.Equal(t, []string{"i02", "i01", "i00"}, ids(page.Items))
}

func TestRun_SortByOtherField(t *testing.T) {
	items := makeItems(3)
	items[0].Views = 100
	page, err := Run(context.Background(), testQuery(items), Params{Page: 1, Limit: 1, SortBy: "views"}, owners)
	require.NoError(t, err)
	assert.Equal(t, []string{"i00"}, ids(page.Items))
}

func TestRun_UnknownSortIsBadRequest(t *testing.T) {
	_, err := Run(context.Background(), testQuery(makeItems(3)), Params{Page: 1, Limit: 10, SortBy: "password"}, owners)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRun_TextFilterMatchesOwnerCaseInsensitive(t *testing.T) {
	items := makeItems(4)
	items[1].OwnerID = "u2"
	items[3].OwnerID = "u2"

	page, err := Run(context.Background(), testQuery(items), Params{Page: 1, Limit: 10, SortBy: "createdAt", Query: "BUILDER"}, owners)
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, []string{"i03", "i01"}, ids(page.Items))
}

func TestRun_DropsItemsWithoutOwner(t *testing.T) {
	items := makeItems(3)
	items[2].OwnerID = "deleted"

	page, err := Run(context.Background(), testQuery(items), Params{Page: 1, Limit: 10, SortBy: "createdAt"}, owners)
	require.NoError(t, err)
	assert.Equal(t, []string{"i01", "i00"}, ids(page.Items))
	assert.Equal(t, 2, page.TotalCount)
}

func TestRun_UsesCountWhenUnfiltered(t *testing.T) {
	q := testQuery(makeItems(5))
	q.Count = func(context.Context) (int, error) { return 42, nil }

	page, err := Run(context.Background(), q, Params{Page: 1, Limit: 10, SortBy: "createdAt"}, owners)
	require.NoError(t, err)
	assert.Equal(t, 42, page.TotalCount)
	assert.Equal(t, 5, page.TotalPages)
}

func TestRun_CountErrorFailsListing(t *testing.T) {
	q := testQuery(makeItems(5))
	q.Count = func(context.Context) (int, error) { return 0, errors.New("throttled") }

	_, err := Run(context.Background(), q, Params{Page: 1, Limit: 10, SortBy: "createdAt"}, owners)
	assert.ErrorContains(t, err, "throttled")
}

func TestFromQuery_Coercion(t *testing.T) {
	p := FromQuery(url.Values{"page": {"abc"}, "limit": {"-4"}}, 10, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, DefaultSort, p.SortBy)
	assert.False(t, p.Asc)

	p = FromQuery(url.Values{"page": {"3"}, "limit": {"5000"}, "sortType": {"ASC"}, "sortBy": {"views"}, "query": {"  cats "}}, 10, 100)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.True(t, p.Asc)
	assert.Equal(t, "views", p.SortBy)
	assert.Equal(t, "cats", p.Query)
	assert.Equal(t, 200, p.Offset())
}

func TestFromQuery_HugePageStaysInRange(t *testing.T) {
	p := FromQuery(url.Values{"page": {"9223372036854775807"}, "limit": {"10"}}, 10, 100)
	assert.Equal(t, math.MaxInt/10, p.Page)
	assert.GreaterOrEqual(t, p.Offset(), 0)

	var page *Page[item]
	var err error
	assert.NotPanics(t, func() {
		page, err = Run(context.Background(), testQuery(makeItems(5)), p, owners)
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.TotalCount)
}

func TestRun_OffsetSaturatesForUnclampedParams(t *testing.T) {
	p := Params{Page: math.MaxInt, Limit: 50, SortBy: "createdAt"}
	assert.Equal(t, math.MaxInt, p.Offset())

	page, err := Run(context.Background(), testQuery(makeItems(5)), p, owners)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
