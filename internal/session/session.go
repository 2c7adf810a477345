// Package session coordinates one open document: its pages, the annotation
// history, the clipboard, the snippet cache and both exports. The terminal
// shell drives it from the UI goroutine while render and export jobs call in
// from worker goroutines.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/clipboard"
	"github.com/csheth/magnifier/internal/config"
	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/interact"
	"github.com/csheth/magnifier/internal/raster"
	"github.com/csheth/magnifier/internal/snippet"
)

var (
	// ErrInput reports a source that is not a usable document. All session
	// state is reset when it is returned.
	ErrInput = errors.New("input rejected")
	// ErrNoDocument is returned by operations that need an open document.
	ErrNoDocument = errors.New("no document open")
	// ErrEmptyClipboard is returned when nothing is waiting to be placed.
	ErrEmptyClipboard = errors.New("clipboard empty")
	// ErrMagnificationLocked is returned while a clipboard item is pending.
	ErrMagnificationLocked = errors.New("magnification locked while placing")
)

// Re-exported so callers can classify errors from one package.
var (
	ErrRender = snippet.ErrRender
	ErrExport = export.ErrExport
)

// warmWorkers bounds concurrent high-resolution renders.
const warmWorkers = 2

var pdfHeader = []byte("%PDF")

// Options configures a session. Zero values fall back to defaults.
type Options struct {
	Raster     raster.Service
	Renderer   *snippet.Renderer
	NewBuilder func() export.DocumentBuilder
	// Validate checks source and output document bytes. Nil means pdfcpu.
	Validate func(data []byte) error

	ExportDPI  float64
	ArrowColor string
	OutputDir  string

	Magnification float64
	MinSelection  float64
	PanStep       float64
	CrossPage     bool
}

// OptionsFromConfig maps loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Raster:        raster.NewPoppler(cfg.Render.Pdftoppm),
		Renderer:      snippet.NewRenderer(cfg.Render.PreviewDPI, cfg.Render.HighDPI),
		ExportDPI:     cfg.Export.DPI,
		ArrowColor:    cfg.Export.ArrowColor,
		OutputDir:     cfg.Export.OutputDir,
		Magnification: cfg.Viewer.Magnification,
		MinSelection:  cfg.Viewer.MinSelection,
		PanStep:       cfg.Viewer.PanStep,
		CrossPage:     cfg.Viewer.CrossPage,
	}
}

// Session is safe for concurrent use.
type Session struct {
	opts     Options
	renderer *snippet.Renderer
	cache    *snippet.Cache

	mu           sync.Mutex
	id           string
	doc          raster.Document
	src          []byte
	pages        []raster.Page
	sizes        []geom.Size
	compositions []geom.Size
	history      *annotate.History
	clip         clipboard.Clipboard
	mag          float64
	crossPage    bool
}

// New returns a session with no document.
func New(opts Options) *Session {
	if opts.Renderer == nil {
		opts.Renderer = snippet.NewRenderer(0, 0)
	}
	if opts.Validate == nil {
		opts.Validate = ValidatePDF
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	mag := opts.Magnification
	if mag <= 0 {
		mag = interact.DefaultMagnification
	}
	return &Session{
		opts:      opts,
		renderer:  opts.Renderer,
		cache:     snippet.NewCache(),
		history:   annotate.NewHistory(),
		mag:       config.SnapMagnification(mag),
		crossPage: opts.CrossPage,
	}
}

// ValidatePDF runs pdfcpu's relaxed validation over data.
func ValidatePDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(data), conf)
}

// Open replaces the current document with data. Any failure leaves the
// session empty and is reported as ErrInput.
func (s *Session) Open(ctx context.Context, data []byte) error {
	s.Close()
	if s.opts.Raster == nil {
		return fmt.Errorf("%w: no rasterizer configured", ErrInput)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return fmt.Errorf("%w: not a PDF document", ErrInput)
	}
	if err := s.opts.Validate(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	doc, err := s.opts.Raster.Open(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	n := doc.NumPages()
	if n == 0 {
		doc.Close()
		return fmt.Errorf("%w: document has no pages", ErrInput)
	}
	pages := make([]raster.Page, 0, n)
	sizes := make([]geom.Size, 0, n)
	for i := 1; i <= n; i++ {
		p, err := doc.Page(i)
		if err != nil {
			doc.Close()
			return fmt.Errorf("%w: page %d: %w", ErrInput, i, err)
		}
		pages = append(pages, p)
		sizes = append(sizes, p.Viewport(1))
	}

	s.mu.Lock()
	s.id = uuid.NewString()
	s.doc = doc
	s.src = data
	s.pages = pages
	s.sizes = sizes
	id := s.id
	s.mu.Unlock()
	log.Printf("[session] %s opened %d pages (%d bytes)", id, n, len(data))
	return nil
}

// Close drops the document and every piece of state derived from it.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		if err := s.doc.Close(); err != nil {
			log.Printf("[session] %s close: %v", s.id, err)
		}
	}
	s.id = ""
	s.doc = nil
	s.src = nil
	s.pages = nil
	s.sizes = nil
	s.compositions = nil
	s.history.Reset()
	s.clip.Clear()
	s.cache.Reset()
}

// ID identifies the open document in log lines; empty when none is open.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Loaded reports whether a document is open.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// NumPages counts document and composition pages.
func (s *Session) NumPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes) + len(s.compositions)
}

// SourcePages counts the document's own pages.
func (s *Session) SourcePages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}

// AddCompositionPage appends a blank page after every other page and returns
// its index.
func (s *Session) AddCompositionPage(size geom.Size) (int, error) {
	if !size.Known() {
		return 0, fmt.Errorf("composition page size %vx%v", size.Width, size.Height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, ErrNoDocument
	}
	s.compositions = append(s.compositions, size)
	idx := len(s.sizes) + len(s.compositions) - 1
	log.Printf("[session] %s composition page %d (%vx%v)", s.id, idx+1, size.Width, size.Height)
	return idx, nil
}

// Page describes page i, 0-based, across document and composition pages.
func (s *Session) Page(i int) (export.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(i)
}

func (s *Session) pageLocked(i int) (export.Page, bool) {
	switch {
	case i < 0:
		return export.Page{}, false
	case i < len(s.sizes):
		return export.Page{Index: i, Size: s.sizes[i], Raster: s.pages[i]}, true
	case i < len(s.sizes)+len(s.compositions):
		size := s.compositions[i-len(s.sizes)]
		return export.Page{Index: i, Size: size, Composition: true, Raster: raster.Blank{Size: size}}, true
	}
	return export.Page{}, false
}

// Pages lists every page in order.
func (s *Session) Pages() []export.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]export.Page, 0, len(s.sizes)+len(s.compositions))
	for i := 0; i < len(s.sizes)+len(s.compositions); i++ {
		p, _ := s.pageLocked(i)
		out = append(out, p)
	}
	return out
}

// Magnification is the factor applied to new selections.
func (s *Session) Magnification() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mag
}

// SetMagnification snaps m onto the allowed steps. It is refused while a
// clipboard item is waiting, since the item's size is already fixed.
func (s *Session) SetMagnification(m float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clip.Active() {
		return s.mag, ErrMagnificationLocked
	}
	s.mag = config.SnapMagnification(m)
	return s.mag, nil
}

// CrossPage reports whether selections go to the clipboard.
func (s *Session) CrossPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crossPage
}

// SetCrossPage switches the capture mode.
func (s *Session) SetCrossPage(on bool) {
	s.mu.Lock()
	s.crossPage = on
	s.mu.Unlock()
}

// Env is the state a viewport needs for the next event.
func (s *Session) Env() interact.Env {
	s.mu.Lock()
	defer s.mu.Unlock()
	return interact.Env{
		Magnification: s.mag,
		Clipboard:     s,
		CrossPage:     s.crossPage,
		MinSelection:  s.opts.MinSelection,
		PanStep:       s.opts.PanStep,
	}
}

// Peek implements interact.ClipboardView.
func (s *Session) Peek() (clipboard.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clip.Peek()
}

// Capture stores a rendered selection in the clipboard.
func (s *Session) Capture(req interact.RequestPreview, preview *snippet.Snippet) (clipboard.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return clipboard.Item{}, ErrNoDocument
	}
	if _, ok := s.pageLocked(req.Page); !ok {
		return clipboard.Item{}, fmt.Errorf("capture: page %d out of range", req.Page)
	}
	item := s.clip.Capture(clipboard.Item{
		SourcePage: req.Page,
		Source:     req.Source,
		Scale:      req.Scale,
		Preview:    preview,
	})
	log.Printf("[session] %s captured %s from page %d", s.id, item.ID, req.Page+1)
	return item, nil
}

// ClearClipboard drops the pending item.
func (s *Session) ClearClipboard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.clip.Peek(); ok {
		log.Printf("[session] %s clipboard %s cleared", s.id, item.ID)
	}
	s.clip.Clear()
}

// Place appends c to page. A placement from the clipboard empties it.
func (s *Session) Place(page int, c annotate.Callout, fromClipboard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	if _, ok := s.pageLocked(page); !ok {
		return fmt.Errorf("place: page %d out of range", page)
	}
	if _, ok := s.pageLocked(c.SourcePage); !ok {
		return fmt.Errorf("place: source page %d out of range", c.SourcePage)
	}
	if fromClipboard && !s.clip.Active() {
		return ErrEmptyClipboard
	}
	if err := s.history.Append(page, c); err != nil {
		return err
	}
	if fromClipboard {
		s.clip.Clear()
	}
	s.pruneLocked()
	return nil
}

// PlaceFromClipboard centers the pending item on at and places it on page.
func (s *Session) PlaceFromClipboard(page int, at geom.Point) (annotate.Callout, error) {
	item, ok := s.Peek()
	if !ok {
		return annotate.Callout{}, ErrEmptyClipboard
	}
	c, err := item.Callout(at)
	if err != nil {
		return annotate.Callout{}, err
	}
	return c, s.Place(page, c, true)
}

// Remove deletes one callout as a new history step.
func (s *Session) Remove(page, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.Remove(page, index); err != nil {
		return err
	}
	s.pruneLocked()
	return nil
}

// Undo steps the history back.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Undo()
}

// Redo steps the history forward.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Redo()
}

// CanUndo and CanRedo report whether the history can move.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Snapshot returns the current annotation set.
func (s *Session) Snapshot() annotate.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// pruneLocked drops cached snippets no retained snapshot can show.
func (s *Session) pruneLocked() {
	live := map[snippet.Key]bool{}
	for c := range s.history.Reachable() {
		live[highKey(c)] = true
	}
	if n := s.cache.Retain(live); n > 0 {
		log.Printf("[session] %s pruned %d snippets", s.id, n)
	}
}

func highKey(c annotate.Callout) snippet.Key {
	return snippet.KeyFor(c.SourcePage, c.Source, c.Scale, snippet.High)
}
