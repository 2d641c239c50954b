// Package listing assembles paginated listings: owner join, optional text
// filter, dynamic sort, offset pagination and an independent total count.
package listing

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultSort is the sort field used when the caller names none.
const DefaultSort = "createdAt"

// Params are the normalized listing query parameters.
type Params struct {
	Page  int
	Limit int
	// SortBy names a key of Query.SortKeys.
	SortBy string
	Asc    bool
	Query  string
}

// Offset is the number of items skipped before the page starts. It saturates
// at math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// FromQuery reads page, limit, sortBy, sortType and query. Non-numeric or
// non-positive page/limit fall back to 1/defLimit; limit is clamped to maxLimit
// and page to the last page whose offset fits in an int.
func FromQuery(v url.Values, defLimit, maxLimit int) Params {
	p := Params{
		Page:   positiveInt(v.Get("page"), 1),
		Limit:  positiveInt(v.Get("limit"), defLimit),
		SortBy: strings.TrimSpace(v.Get("sortBy")),
		Asc:    strings.EqualFold(v.Get("sortType"), "asc"),
		Query:  strings.TrimSpace(v.Get("query")),
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSort
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Limit > 0 {
		p.Page = min(p.Page, math.MaxInt/p.Limit)
	}
	return p
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Page is the listing envelope.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
}

// Empty returns the envelope for a listing with no matches.
func Empty[T any](p Params) *Page[T] {
	return &Page[T]{Items: []T{}, CurrentPage: p.Page, Limit: p.Limit}
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// OwnerLoader resolves owner profiles for the join stage.
type OwnerLoader interface {
	BatchGetOwners(ctx context.Context, ids []string) (map[string]domain.Owner, error)
}

// Query describes one listing.
type Query[T any] struct {
	// Resource labels the latency metric.
	Resource string
	// Fetch loads every candidate item matching the base filter.
	Fetch func(ctx context.Context) ([]T, error)
	// Count counts candidates without loading them. It is used for the total
	// when no text filter applies; otherwise the total re-runs Fetch. Either
	// way the total may disagree with the page under concurrent writes.
	Count func(ctx context.Context) (int, error)

	// OwnerOf and Attach enable the owner join. Items whose owner no longer
	// exists are dropped.
	OwnerOf func(T) string
	Attach  func(*T, domain.Owner)

	// Text returns the fields matched by a free-text query.
	Text func(T) []string

	SortKeys map[string]func(a, b T) int
}

// Run executes the page read and the total count concurrently.
func Run[T any](ctx context.Context, q Query[T], p Params, owners OwnerLoader) (*Page[T], error) {
	start := time.Now()
	defer func() {
		metrics.ListingDuration.WithLabelValues(q.Resource).Observe(time.Since(start).Seconds())
	}()

	less, ok := q.SortKeys[p.SortBy]
	if !ok {
		return nil, fmt.Errorf("cannot sort by %q: %w", p.SortBy, domain.ErrBadRequest)
	}

	var (
		items []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matched, err := q.matched(gctx, p, owners)
		if err != nil {
			return err
		}
		slices.SortStableFunc(matched, func(a, b T) int {
			if p.Asc {
				return less(a, b)
			}
			return less(b, a)
		})
		items = window(matched, p.Offset(), p.Limit)
		return nil
	})
	g.Go(func() error {
		var err error
		if p.Query == "" && q.Count != nil {
			total, err = q.Count(gctx)
			return err
		}
		matched, err := q.matched(gctx, p, owners)
		total = len(matched)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if total == 0 {
		return Empty[T](p), nil
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:       items,
		CurrentPage: p.Page,
		Limit:       p.Limit,
		TotalPages:  TotalPages(total, p.Limit),
		TotalCount:  total,
	}, nil
}

// matched runs the fetch, join and filter stages.
func (q Query[T]) matched(ctx context.Context, p Params, owners OwnerLoader) ([]T, error) {
	items, err := q.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	items = slices.Clone(items)
	if q.OwnerOf != nil {
		items, err = q.join(ctx, items, owners)
		if err != nil {
			return nil, err
		}
	}
	if p.Query == "" || q.Text == nil {
		return items, nil
	}
	needle := strings.ToLower(p.Query)
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, field := range q.Text(it) {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

func (q Query[T]) join(ctx context.Context, items []T, owners OwnerLoader) ([]T, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, q.OwnerOf(it))
	}
	profiles, err := owners.BatchGetOwners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		o, ok := profiles[q.OwnerOf(it)]
		if !ok {
			continue
		}
		q.Attach(&it, o)
		out = append(out, it)
	}
	return out, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + min(limit, len(items)-offset)
	return items[offset:end]
}

// ByTime orders by a timestamp field.
func ByTime[T any](f func(T) time.Time) func(a, b T) int {
	return func(a, b T) int { return f(a).Compare(f(b)) }
}

// ByString orders case-insensitively by a text field.
func ByString[T any](f func(T) string) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(strings.ToLower(f(a)), strings.ToLower(f(b))) }
}

// ByNumber orders by a numeric field.
func ByNumber[T any, N cmp.Ordered](f func(T) N) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(f(a), f(b)) }
}
