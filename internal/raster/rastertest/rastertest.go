// Package rastertest provides an in-memory rasterization service whose pixels
// encode their own document coordinates, so tests can check exactly which
// region of a page ended up where.
package rastertest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"sync/atomic"

	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
)

// ErrInjected is returned by pages listed in Service.FailPages.
var ErrInjected = errors.New("rastertest: injected failure")

// Service opens any input into a document with the configured page sizes.
type Service struct {
	Sizes []geom.Size
	// FailPages lists 1-based pages whose Render fails.
	FailPages map[int]bool
	// RejectOpen makes Open fail with raster.ErrOpen.
	RejectOpen bool

	renders atomic.Int64
	mu      sync.Mutex
	opened  []*Document
}

// New returns a service serving n pages of the given size.
func New(n int, size geom.Size) *Service {
	sizes := make([]geom.Size, n)
	for i := range sizes {
		sizes[i] = size
	}
	return &Service{Sizes: sizes}
}

// Open implements raster.Service.
func (s *Service) Open(ctx context.Context, data []byte) (raster.Document, error) {
	if s.RejectOpen || len(data) == 0 {
		return nil, fmt.Errorf("%w: rejected", raster.ErrOpen)
	}
	doc := &Document{svc: s}
	s.mu.Lock()
	s.opened = append(s.opened, doc)
	s.mu.Unlock()
	return doc, nil
}

// Renders reports how many Render calls have been made across all pages.
func (s *Service) Renders() int { return int(s.renders.Load()) }

// Opened returns every document handed out so far.
func (s *Service) Opened() []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Document(nil), s.opened...)
}

// Document is an opened synthetic document.
type Document struct {
	svc    *Service
	closed bool
}

func (d *Document) NumPages() int { return len(d.svc.Sizes) }

func (d *Document) Page(n int) (raster.Page, error) {
	if n < 1 || n > len(d.svc.Sizes) {
		return nil, fmt.Errorf("%w: %d", raster.ErrPageRange, n)
	}
	return &Page{svc: d.svc, Number: n, Size: d.svc.Sizes[n-1]}, nil
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool { return d.closed }

func (d *Document) Close() error {
	d.closed = true
	return nil
}

// Page paints Color(x, y, Number) at every device pixel.
type Page struct {
	svc    *Service
	Number int
	Size   geom.Size
}

func (p *Page) Viewport(scale float64) geom.Size {
	return geom.Size{Width: p.Size.Width * scale, Height: p.Size.Height * scale}
}

func (p *Page) Render(ctx context.Context, dst draw.Image, t geom.Transform) error {
	if p.svc != nil {
		p.svc.renders.Add(1)
		if p.svc.FailPages[p.Number] {
			return ErrInjected
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	area := raster.PixelBounds(geom.Rect{Width: p.Size.Width, Height: p.Size.Height}, t).Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			doc := t.ToDocument(geom.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if doc.X < 0 || doc.Y < 0 || doc.X >= p.Size.Width || doc.Y >= p.Size.Height {
				continue
			}
			dst.Set(x, y, Color(doc.X, doc.Y, p.Number))
		}
	}
	return nil
}

// Color is the synthetic pixel value at a document point.
func Color(x, y float64, page int) color.RGBA {
	return color.RGBA{
		R: uint8(int(math.Floor(x)) % 256),
		G: uint8(int(math.Floor(y)) % 256),
		B: uint8(page),
		A: 0xff,
	}
}

// At decodes the document coordinates encoded at a pixel of img.
func At(img image.Image, x, y int) (docX, docY int, page int) {
	c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	return int(c.R), int(c.G), int(c.B)
}
