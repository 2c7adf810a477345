package tui

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/magnifier/internal/config"
	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/interact"
	"github.com/csheth/magnifier/internal/session"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Session      *session.Session
	DocumentPath string
	// RedrawDebounce delays page renders after view changes; zero renders on
	// the next message.
	RedrawDebounce   time.Duration
	NewPageSize      string
	NewPageLandscape bool
	ArrowColor       color.RGBA
}

// New returns a tea.Model ready to be mounted into a Program.
func New(cfg Config) tea.Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	if cfg.NewPageSize == "" {
		cfg.NewPageSize = config.PageA4
	}
	arrow := cfg.ArrowColor
	if arrow.A == 0 {
		arrow = export.ArrowColor
	}
	return &model{
		config:      cfg,
		session:     cfg.Session,
		jobs:        newJobBus(),
		keys:        newKeyMap(),
		help:        help.New(),
		spinner:     spin,
		layout:      newPageLayout(),
		stage:       stageLoading,
		running:     map[jobKind]int{},
		warming:     map[int]bool{},
		arrowColor:  arrow,
		pageSize:    cfg.NewPageSize,
		landscape:   cfg.NewPageLandscape,
		infoMessage: fmt.Sprintf("Opening %s…", filepath.Base(cfg.DocumentPath)),
	}
}

type model struct {
	config  Config
	session *session.Session
	jobs    *jobBus
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	layout  pageLayout
	stage   stage

	viewports []*interact.Viewport
	current   int

	base       *baseFrame
	frameGen   uint64
	running    map[jobKind]int
	warming    map[int]bool
	exporting  bool
	buttonDown bool
	// capture is the newest copy-to-page request still rendering.
	capture    *captureTicket
	hovering   bool

	arrowColor   color.RGBA
	pageSize     string
	landscape    bool
	infoMessage  string
	errorMessage string
	helpVisible  bool
	sized        bool
}

func (m *model) Init() tea.Cmd {
	if m.session == nil || m.config.DocumentPath == "" {
		m.stage = stageFailed
		m.errorMessage = "No document given. Run magnifier <file.pdf>."
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindOpen, openDocumentJob(m.session, m.config.DocumentPath)))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case jobSignalMsg:
		m.running[msg.Snapshot.Kind]++
		return m, nil
	case jobResultEnvelope:
		if m.running[msg.Snapshot.Kind] > 0 {
			m.running[msg.Snapshot.Kind]--
		}
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case spinner.TickMsg:
		if m.stage == stageLoading || m.exporting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.sized = true
		return m, m.resizeViewports()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	case documentLoadedMsg:
		return m, m.handleDocumentLoaded(msg)
	case previewResultMsg:
		return m, m.handlePreview(msg)
	case frameTickMsg:
		if msg.gen != m.frameGen || m.stage != stageDisplay {
			return m, nil
		}
		vp := m.viewport()
		if vp == nil {
			return m, nil
		}
		return m, m.jobs.Start(jobKindFrame, frameJob(m.session, msg.gen, vp.Page(), vp.Transform(), m.layout.cols, m.layout.rows))
	case frameResultMsg:
		if msg.gen != m.frameGen {
			return m, nil
		}
		if msg.err != nil {
			log.Printf("[render] page %d frame: %v", msg.page+1, msg.err)
		}
		if msg.image == nil {
			return m, nil
		}
		m.base = &baseFrame{page: msg.page, transform: msg.transform, image: msg.image}
		return m, m.warmCmd(msg.page)
	case warmResultMsg:
		delete(m.warming, msg.page)
		if msg.docID != m.session.ID() {
			return m, nil
		}
		if msg.err != nil {
			log.Printf("[render] warm page %d: %v", msg.page+1, msg.err)
		}
		return m, nil
	case exportResultMsg:
		m.exporting = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Export failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Saved %s (%d callouts, %s).", msg.result.Path, len(msg.result.Drawn), msg.result.Duration.Round(time.Millisecond))
		return m, nil
	}
	return m, nil
}

func (m *model) handleDocumentLoaded(msg documentLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.stage = stageFailed
		m.viewports = nil
		m.base = nil
		m.errorMessage = fmt.Sprintf("Could not open %s: %v", filepath.Base(msg.path), msg.err)
		m.infoMessage = ""
		return nil
	}
	m.stage = stageDisplay
	m.errorMessage = ""
	m.current = 0
	m.base = nil
	m.warming = map[int]bool{}
	m.viewports = m.viewports[:0]
	for _, p := range m.session.Pages() {
		m.viewports = append(m.viewports, interact.New(p.Index, p.Size, p.Composition))
	}
	m.infoMessage = fmt.Sprintf("Loaded %s (%d pages). Drag on a page to magnify a region.", filepath.Base(msg.path), msg.pages)
	return m.resizeViewports()
}

func (m *model) viewport() *interact.Viewport {
	if m.current < 0 || m.current >= len(m.viewports) {
		return nil
	}
	return m.viewports[m.current]
}

func (m *model) resizeViewports() tea.Cmd {
	if !m.sized || len(m.viewports) == 0 {
		return nil
	}
	screen := m.layout.Screen()
	var cmd tea.Cmd
	for _, vp := range m.viewports {
		effects := vp.Resize(screen)
		if vp == m.viewport() {
			cmd = m.apply(effects)
		}
	}
	if cmd == nil {
		cmd = m.scheduleFrame()
	}
	return cmd
}

// scheduleFrame debounces page renders: only the newest tick starts a
// render, and only the newest render is kept.
func (m *model) scheduleFrame() tea.Cmd {
	m.frameGen++
	gen := m.frameGen
	if m.config.RedrawDebounce <= 0 {
		return func() tea.Msg { return frameTickMsg{gen: gen} }
	}
	return tea.Tick(m.config.RedrawDebounce, func(time.Time) tea.Msg {
		return frameTickMsg{gen: gen}
	})
}

func (m *model) warmCmd(page int) tea.Cmd {
	if m.warming[page] || len(m.session.Missing(page)) == 0 {
		return nil
	}
	m.warming[page] = true
	return m.jobs.Start(jobKindWarm, warmJob(m.session, page))
}

type captureTicket struct {
	page int
	seq  uint64
}

func (c *captureTicket) matches(req interact.RequestPreview) bool {
	return c != nil && c.page == req.Page && c.seq == req.Seq
}

// apply carries out viewport effects.
func (m *model) apply(effects []interact.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch e := eff.(type) {
		case interact.RequestPreview:
			if e.Capture {
				m.capture = &captureTicket{page: e.Page, seq: e.Seq}
			}
			cmds = append(cmds, m.jobs.Start(jobKindPreview, previewJob(m.session, e)))
		case interact.PlaceCallout:
			if err := m.session.Place(e.Page, e.Callout, e.FromClipboard); err != nil {
				m.errorMessage = fmt.Sprintf("Placement failed: %v", err)
				continue
			}
			m.errorMessage = ""
			if e.Callout.SourcePage == e.Page {
				m.infoMessage = fmt.Sprintf("Detail placed on page %d.", e.Page+1)
			} else {
				m.infoMessage = fmt.Sprintf("Detail from page %d placed on page %d.", e.Callout.SourcePage+1, e.Page+1)
			}
			cmds = append(cmds, m.warmCmd(e.Page))
		case interact.ClearClipboard:
			m.session.ClearClipboard()
			m.infoMessage = "Placement canceled."
		case interact.Redraw:
			cmds = append(cmds, m.scheduleFrame())
		}
	}
	return tea.Batch(cmds...)
}

func (m *model) handlePreview(msg previewResultMsg) tea.Cmd {
	if msg.docID != m.session.ID() {
		return nil
	}
	if msg.req.Capture {
		if !m.capture.matches(msg.req) {
			log.Printf("[render] stale capture seq=%d page=%d dropped", msg.req.Seq, msg.req.Page+1)
			return nil
		}
		m.capture = nil
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Copy failed: %v", msg.err)
			return nil
		}
		if _, err := m.session.Capture(msg.req, msg.snippet); err != nil {
			m.errorMessage = fmt.Sprintf("Copy failed: %v", err)
			return nil
		}
		m.errorMessage = ""
		m.infoMessage = placingMessage
		return nil
	}
	if msg.req.Page >= len(m.viewports) {
		return nil
	}
	vp := m.viewports[msg.req.Page]
	if msg.err != nil {
		if pending, placing := vp.Pending(); !placing || pending.Seq != msg.req.Seq {
			log.Printf("[render] stale preview failure seq=%d page=%d dropped: %v", msg.req.Seq, msg.req.Page+1, msg.err)
			return nil
		}
		m.errorMessage = fmt.Sprintf("Preview failed: %v", msg.err)
		vp.Cancel()
		return nil
	}
	if !vp.PreviewReady(msg.req.Seq, msg.snippet) {
		log.Printf("[render] stale preview seq=%d page=%d dropped", msg.req.Seq, msg.req.Page+1)
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	vp := m.viewport()
	if m.stage != stageDisplay || vp == nil || m.helpVisible {
		return nil
	}
	pos, inside := m.layout.ToScreen(msg.X, msg.Y)
	if !inside {
		m.buttonDown = false
		if m.hovering {
			m.hovering = false
			return m.apply(vp.Handle(interact.Event{Kind: interact.PointerLeave}, m.session.Env()))
		}
		return nil
	}
	m.hovering = true

	ev := interact.Event{Pos: pos, Alt: msg.Alt}
	switch msg.Type {
	case tea.MouseLeft:
		if m.buttonDown {
			ev.Kind = interact.PointerMove
		} else {
			if !msg.Alt && m.editLocked() {
				return nil
			}
			m.buttonDown = true
			ev.Kind = interact.PointerDown
			ev.Button = interact.ButtonLeft
		}
	case tea.MouseMiddle:
		ev.Kind = interact.PointerDown
		ev.Button = interact.ButtonMiddle
	case tea.MouseRight:
		ev.Kind = interact.PointerDown
		ev.Button = interact.ButtonRight
	case tea.MouseRelease:
		m.buttonDown = false
		ev.Kind = interact.PointerUp
	case tea.MouseMotion:
		ev.Kind = interact.PointerMove
	case tea.MouseWheelUp, tea.MouseWheelDown:
		delta := -1.0
		if msg.Type == tea.MouseWheelDown {
			delta = 1
		}
		if !msg.Alt {
			return m.turnPage(int(delta))
		}
		ev.Kind = interact.Wheel
		ev.DeltaY = delta
	default:
		return nil
	}
	return m.apply(vp.Handle(ev, m.session.Env()))
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.helpVisible = !m.helpVisible
		return m, nil
	}
	vp := m.viewport()
	if m.stage != stageDisplay || vp == nil {
		return m, nil
	}
	env := m.session.Env()

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
		m.capture = nil
		return m, m.apply(vp.Handle(interact.Event{Kind: interact.KeyPress, Key: interact.KeyEscape}, env))
	case key.Matches(msg, m.keys.PanUp):
		return m, m.apply(vp.Handle(interact.Event{Kind: interact.KeyPress, Key: interact.KeyUp}, env))
	case key.Matches(msg, m.keys.PanDown):
		return m, m.apply(vp.Handle(interact.Event{Kind: interact.KeyPress, Key: interact.KeyDown}, env))
	case key.Matches(msg, m.keys.PanLeft):
		return m, m.apply(vp.Handle(interact.Event{Kind: interact.KeyPress, Key: interact.KeyLeft}, env))
	case key.Matches(msg, m.keys.PanRight):
		return m, m.apply(vp.Handle(interact.Event{Kind: interact.KeyPress, Key: interact.KeyRight}, env))
	case key.Matches(msg, m.keys.NextPage):
		return m, m.turnPage(1)
	case key.Matches(msg, m.keys.PrevPage):
		return m, m.turnPage(-1)
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.apply(vp.ZoomCentered(geom.ZoomInFactor))
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.apply(vp.ZoomCentered(geom.ZoomOutFactor))
	case key.Matches(msg, m.keys.ResetView):
		return m, m.apply(vp.ResetView())
	case m.isEditKey(msg) && m.editLocked():
		return m, nil
	case key.Matches(msg, m.keys.Undo):
		if m.session.Undo() {
			m.infoMessage = "Undid last change."
		} else {
			m.infoMessage = "Nothing to undo."
		}
		return m, m.warmCmd(vp.Page())
	case key.Matches(msg, m.keys.Redo):
		if m.session.Redo() {
			m.infoMessage = "Redid change."
		} else {
			m.infoMessage = "Nothing to redo."
		}
		return m, m.warmCmd(vp.Page())
	case key.Matches(msg, m.keys.Remove):
		list := m.session.Snapshot().Page(vp.Page())
		if len(list) == 0 {
			m.infoMessage = "No callouts on this page."
			return m, nil
		}
		if err := m.session.Remove(vp.Page(), len(list)-1); err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.infoMessage = "Removed the newest callout on this page."
		return m, nil
	case key.Matches(msg, m.keys.CrossPage):
		on := !m.session.CrossPage()
		m.session.SetCrossPage(on)
		if on {
			m.infoMessage = "Copy-to-page on: a selection goes to the clipboard for placing on any page."
		} else {
			m.infoMessage = "Copy-to-page off: a selection is placed on its own page."
		}
		return m, nil
	case key.Matches(msg, m.keys.MagUp):
		return m, m.stepMagnification(config.MagnificationStep)
	case key.Matches(msg, m.keys.MagDown):
		return m, m.stepMagnification(-config.MagnificationStep)
	case key.Matches(msg, m.keys.PageSize):
		if m.pageSize == config.PageA4 {
			m.pageSize = config.PageA3
		} else {
			m.pageSize = config.PageA4
		}
		m.infoMessage = fmt.Sprintf("New pages: %s.", m.newPageLabel())
		return m, nil
	case key.Matches(msg, m.keys.Orientation):
		m.landscape = !m.landscape
		m.infoMessage = fmt.Sprintf("New pages: %s.", m.newPageLabel())
		return m, nil
	case key.Matches(msg, m.keys.AddPage):
		return m, m.addCompositionPage()
	case key.Matches(msg, m.keys.ExportImages):
		return m, m.startExport(exportImages)
	case key.Matches(msg, m.keys.ExportDocument):
		return m, m.startExport(exportDocument)
	}
	return m, nil
}

func (m *model) isEditKey(msg tea.KeyMsg) bool {
	return key.Matches(msg, m.keys.Undo, m.keys.Redo, m.keys.Remove, m.keys.CrossPage,
		m.keys.MagUp, m.keys.MagDown, m.keys.AddPage)
}

// editLocked reports whether annotations are frozen by a running export.
func (m *model) editLocked() bool {
	if !m.exporting {
		return false
	}
	m.infoMessage = exportLockedMessage
	return true
}

func (m *model) stepMagnification(delta float64) tea.Cmd {
	mag, err := m.session.SetMagnification(m.session.Magnification() + delta)
	if errors.Is(err, session.ErrMagnificationLocked) {
		m.infoMessage = "Magnification is locked while a detail waits to be placed."
		return nil
	}
	m.infoMessage = fmt.Sprintf("Magnification %.1f×.", mag)
	return nil
}

func (m *model) newPageLabel() string {
	orient := "portrait"
	if m.landscape {
		orient = "landscape"
	}
	return fmt.Sprintf("%s %s", m.pageSize, orient)
}

func (m *model) addCompositionPage() tea.Cmd {
	w, h, err := config.PageSize(m.pageSize, m.landscape)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	size := geom.Size{Width: w, Height: h}
	idx, err := m.session.AddCompositionPage(size)
	if err != nil {
		m.errorMessage = fmt.Sprintf("Could not add page: %v", err)
		return nil
	}
	vp := interact.New(idx, size, true)
	m.viewports = append(m.viewports, vp)
	if m.sized {
		vp.Resize(m.layout.Screen())
	}
	m.infoMessage = fmt.Sprintf("Added blank %s page %d.", m.newPageLabel(), idx+1)
	return m.showPage(idx)
}

func (m *model) turnPage(delta int) tea.Cmd {
	next := m.current + delta
	if next < 0 || next >= len(m.viewports) || next == m.current {
		return nil
	}
	return m.showPage(next)
}

// showPage switches pages. Work in progress on the old page is dropped; a
// clipboard item survives so it can be placed on the new page.
func (m *model) showPage(idx int) tea.Cmd {
	if vp := m.viewport(); vp != nil && idx != m.current {
		vp.Cancel()
	}
	m.current = idx
	m.base = nil
	m.buttonDown = false
	return m.scheduleFrame()
}

func (m *model) startExport(kind exportKind) tea.Cmd {
	if m.exporting {
		m.infoMessage = "An export is already running."
		return nil
	}
	m.exporting = true
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Exporting %s…", kind)
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExport, exportJob(m.session, kind)))
}
