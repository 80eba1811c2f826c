package report

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// SearchResult is one page of records matching a query.
type SearchResult struct {
	Query   string
	Entries []Entry
}

// Search finds the records matching query in account titles of every
// locale, account codes, summaries, notes, dates and amounts. A blank query
// matches nothing.
func (e *Engine) Search(ctx context.Context, query string, page, size int) (*SearchResult, *Page, error) {
	query = strings.TrimSpace(query)
	_, meta := paginate[Entry](nil, page, e.size(size))

	var (
		rows  []store.RecordRow
		total int
		diag  *Diagnostics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, total, err = e.store.SearchRecords(gctx, store.SearchParams{
			Query:  query,
			Limit:  meta.PageSize,
			Offset: (meta.Page - 1) * meta.PageSize,
		})
		return err
	})
	g.Go(func() error {
		var err error
		diag, err = loadDiagnostics(gctx, e.store.Queries)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = entryOf(r)
	}
	diag.annotate(entries)

	meta.TotalItems = total
	meta.TotalPages = (total + meta.PageSize - 1) / meta.PageSize
	if meta.TotalPages == 0 {
		meta.TotalPages = 1
	}
	return &SearchResult{Query: query, Entries: entries}, meta, nil
}
