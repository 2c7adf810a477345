package tui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/image/draw"

	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/interact"
	"github.com/csheth/magnifier/internal/session"
)

// deskColor fills the frame around the page.
var deskColor = color.RGBA{R: 0x2b, G: 0x2b, B: 0x30, A: 0xff}

func openDocumentJob(sess *session.Session, path string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 30*time.Second)
		defer cancel()
		data, err := os.ReadFile(path)
		if err != nil {
			sess.Close()
			err = fmt.Errorf("%w: %w", session.ErrInput, err)
			return documentLoadedMsg{path: path, err: err}, err
		}
		if err := sess.Open(ctx, data); err != nil {
			return documentLoadedMsg{path: path, err: err}, err
		}
		return documentLoadedMsg{path: path, id: sess.ID(), pages: sess.NumPages()}, nil
	}
}

func previewJob(sess *session.Session, req interact.RequestPreview) jobRunner {
	docID := sess.ID()
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 20*time.Second)
		defer cancel()
		snip, err := sess.Preview(ctx, req)
		return previewResultMsg{docID: docID, req: req, snippet: snip, err: err}, err
	}
}

func frameJob(sess *session.Session, gen uint64, page int, t geom.Transform, cols, rows int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 20*time.Second)
		defer cancel()
		img := image.NewRGBA(image.Rect(0, 0, cols*pixelsPerCol, rows*pixelsPerRow))
		draw.Draw(img, img.Bounds(), image.NewUniform(deskColor), image.Point{}, draw.Src)
		p, ok := sess.Page(page)
		if !ok {
			err := fmt.Errorf("page %d unavailable", page+1)
			return frameResultMsg{gen: gen, page: page, err: err}, err
		}
		var err error
		if p.Raster != nil {
			err = p.Raster.Render(ctx, img, t)
		}
		return frameResultMsg{gen: gen, page: page, transform: t, image: img, err: err}, err
	}
}

func warmJob(sess *session.Session, page int) jobRunner {
	docID := sess.ID()
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		n, err := sess.Warm(ctx, page)
		return warmResultMsg{docID: docID, page: page, count: n, err: err}, err
	}
}

func exportJob(sess *session.Session, kind exportKind) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 10*time.Minute)
		defer cancel()
		var (
			res session.Result
			err error
		)
		switch kind {
		case exportDocument:
			res, err = sess.ExportDocument(ctx)
		default:
			res, err = sess.ExportImages(ctx)
		}
		return exportResultMsg{kind: kind, result: res, err: err}, err
	}
}
