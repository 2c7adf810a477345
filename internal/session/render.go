package session

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/interact"
	"github.com/csheth/magnifier/internal/raster"
	"github.com/csheth/magnifier/internal/snippet"
)

var _ export.Snippets = (*Session)(nil)

func (s *Session) rasterPage(i int) (raster.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	p, ok := s.pageLocked(i)
	if !ok {
		return nil, fmt.Errorf("%w: page %d", raster.ErrPageRange, i+1)
	}
	return p.Raster, nil
}

// Preview renders the preview tier for a finished selection. Previews are
// not cached.
func (s *Session) Preview(ctx context.Context, req interact.RequestPreview) (*snippet.Snippet, error) {
	page, err := s.rasterPage(req.Page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snippet.ErrRender, err)
	}
	return s.renderer.Render(ctx, page, req.Source, req.Scale, snippet.Preview)
}

// Snippet returns the high-resolution image for c, rendering it at most once
// however many callers ask concurrently.
func (s *Session) Snippet(ctx context.Context, c annotate.Callout) (*snippet.Snippet, error) {
	page, err := s.rasterPage(c.SourcePage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snippet.ErrRender, err)
	}
	return s.cache.Do(ctx, highKey(c), func(ctx context.Context) (*snippet.Snippet, error) {
		return s.renderer.Render(ctx, page, c.Source, c.Scale, snippet.High)
	})
}

// Cached returns the high-resolution image for c only if it is ready.
func (s *Session) Cached(c annotate.Callout) (*snippet.Snippet, bool) {
	return s.cache.Get(highKey(c))
}

// Missing lists callouts on page whose high-resolution image is neither
// cached nor being rendered.
func (s *Session) Missing(page int) []annotate.Callout {
	var out []annotate.Callout
	for _, c := range s.Snapshot().Page(page) {
		k := highKey(c)
		if _, ok := s.cache.Get(k); ok || s.cache.Pending(k) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Warm renders every missing high-resolution image for page with a small
// worker pool. Failures are logged and skipped; it returns how many images
// became available.
func (s *Session) Warm(ctx context.Context, page int) (int, error) {
	missing := s.Missing(page)
	if len(missing) == 0 {
		return 0, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmWorkers)
	var ready atomic.Int64
	for _, c := range missing {
		c := c
		g.Go(func() error {
			if _, err := s.Snippet(gctx, c); err != nil {
				log.Printf("[render] page %d callout from page %d skipped: %v", page+1, c.SourcePage+1, err)
				return nil
			}
			ready.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(ready.Load()), err
	}
	return int(ready.Load()), ctx.Err()
}
