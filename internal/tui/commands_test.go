package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
	"github.com/csheth/magnifier/internal/session"
)

func TestOpenDocumentJobMissingFile(t *testing.T) {
	sess := newTestSession(t, 1)
	msg, err := openDocumentJob(sess, "/does/not/exist.pdf")(context.Background())
	if !errors.Is(err, session.ErrInput) {
		t.Fatalf("err = %v, want ErrInput", err)
	}
	loaded, ok := msg.(documentLoadedMsg)
	if !ok || loaded.err == nil {
		t.Fatalf("msg = %#v", msg)
	}
}

func TestFrameJobPaintsDeskAndPage(t *testing.T) {
	m := newTestModel(t)
	// Zoomed out the page sits in the middle with desk on both sides.
	tr := geom.Transform{Scale: 0.2, X: 20, Y: 0}
	msg, err := frameJob(m.session, 7, 0, tr, 80, 23)(context.Background())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	res := msg.(frameResultMsg)
	if res.gen != 7 || res.transform != tr {
		t.Fatalf("result = %+v", res)
	}
	if got := res.image.RGBAAt(5, 5); got != deskColor {
		t.Fatalf("desk pixel = %v", got)
	}
	if got := res.image.RGBAAt(30, 5); got == deskColor {
		t.Fatal("page pixel should be painted")
	}
}

func TestFrameJobCompositionPageIsBlank(t *testing.T) {
	m := newTestModel(t)
	idx, err := m.session.AddCompositionPage(geom.Size{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	msg, err := frameJob(m.session, 1, idx, geom.Identity, 80, 23)(context.Background())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if got := msg.(frameResultMsg).image.RGBAAt(10, 10); got != raster.Paper {
		t.Fatalf("pixel = %v, want paper", got)
	}
}

func TestWarmJobRendersMissingCallouts(t *testing.T) {
	m := newTestModel(t)
	if err := m.session.Place(0, calloutAt(t, 10, 10), false); err != nil {
		t.Fatalf("place: %v", err)
	}
	msg, err := warmJob(m.session, 0)(context.Background())
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	res := msg.(warmResultMsg)
	if res.count != 1 || res.docID != m.session.ID() {
		t.Fatalf("result = %+v", res)
	}
	if missing := m.session.Missing(0); len(missing) != 0 {
		t.Fatalf("still missing %d", len(missing))
	}
	if cmd := m.warmCmd(0); cmd != nil {
		t.Fatal("nothing left to warm")
	}
}

func TestJobEnvelopeUnwrapsPayload(t *testing.T) {
	m := newTestModel(t)
	m.Update(jobSignalMsg{Snapshot: jobSnapshot{Kind: jobKindExport}})
	if m.running[jobKindExport] != 1 {
		t.Fatalf("running = %d", m.running[jobKindExport])
	}
	m.exporting = true
	var payload tea.Msg = exportResultMsg{kind: exportDocument, err: errors.New("disk full")}
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{Kind: jobKindExport}, Payload: payload})
	if m.running[jobKindExport] != 0 {
		t.Fatalf("running = %d after result", m.running[jobKindExport])
	}
	if m.exporting || m.errorMessage == "" {
		t.Fatalf("exporting=%v error=%q", m.exporting, m.errorMessage)
	}
}
