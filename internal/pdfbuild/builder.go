// Package pdfbuild rebuilds a PDF by importing its pages as templates and
// drawing on top of them.
package pdfbuild

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/ledongthuc/pdf"

	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/geom"
)

const (
	importBox = "/CropBox"
	mediaBox  = "/MediaBox"
	labelFont = "Helvetica"
)

var errNotLoaded = errors.New("pdfbuild: no source loaded")

// Builder implements export.DocumentBuilder on fpdf. Callers hand it
// bottom-left page coordinates; fpdf works top-left, so every draw call is
// flipped against the current page height.
type Builder struct {
	pdf   *fpdf.Fpdf
	imp   *gofpdi.Importer
	src   io.ReadSeeker
	pages int
	page  geom.Size
}

var _ export.DocumentBuilder = (*Builder)(nil)

// New returns an empty builder.
func New() *Builder {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	return &Builder{pdf: doc, imp: gofpdi.NewImporter()}
}

// Load counts the source pages and keeps the bytes for importing.
func (b *Builder) Load(src []byte) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfbuild: read source: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return 0, fmt.Errorf("pdfbuild: read source: %w", err)
	}
	b.pages = reader.NumPage()
	b.src = bytes.NewReader(src)
	return b.pages, nil
}

// AppendSourcePage imports page n by its crop box onto a new page of the
// same size.
func (b *Builder) AppendSourcePage(n int) (box export.Box, err error) {
	if b.src == nil {
		return export.Box{}, errNotLoaded
	}
	if n < 1 || n > b.pages {
		return export.Box{}, fmt.Errorf("pdfbuild: page %d of %d", n, b.pages)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfbuild: import page %d: %v", n, r)
		}
	}()
	rs := b.src
	tpl := b.imp.ImportPageFromStream(b.pdf, &rs, n, importBox)
	if err := b.pdf.Error(); err != nil {
		return export.Box{}, fmt.Errorf("pdfbuild: import page %d: %w", n, err)
	}
	size := b.importedSize(n)
	b.pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
	b.imp.UseImportedTemplate(b.pdf, tpl, 0, 0, size.Width, size.Height)
	if err := b.pdf.Error(); err != nil {
		return export.Box{}, fmt.Errorf("pdfbuild: place page %d: %w", n, err)
	}
	b.page = size
	return export.Box{Width: size.Width, Height: size.Height}, nil
}

func (b *Builder) importedSize(n int) geom.Size {
	boxes := b.imp.GetPageSizes()[n]
	for _, key := range []string{importBox, mediaBox} {
		if dims, ok := boxes[key]; ok && dims["w"] > 0 && dims["h"] > 0 {
			return geom.Size{Width: dims["w"], Height: dims["h"]}
		}
	}
	w, h := b.pdf.GetPageSize()
	return geom.Size{Width: w, Height: h}
}

// AppendBlankPage adds an empty page.
func (b *Builder) AppendBlankPage(size geom.Size) (export.Box, error) {
	if !size.Known() {
		return export.Box{}, fmt.Errorf("pdfbuild: blank page size %vx%v", size.Width, size.Height)
	}
	b.pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
	if err := b.pdf.Error(); err != nil {
		return export.Box{}, err
	}
	b.page = size
	return export.Box{Width: size.Width, Height: size.Height}, nil
}

// EmbedImage registers PNG bytes under name.
func (b *Builder) EmbedImage(name string, png []byte) error {
	b.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	return b.pdf.Error()
}

// DrawImage places a registered image at r.
func (b *Builder) DrawImage(name string, r export.Box) {
	y := b.page.Height - r.Y - r.Height
	b.pdf.ImageOptions(name, r.X, y, r.Width, r.Height, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

// DrawLine strokes a round-capped line.
func (b *Builder) DrawLine(from, to geom.Point, width float64, col color.RGBA) {
	b.pdf.SetDrawColor(int(col.R), int(col.G), int(col.B))
	b.pdf.SetLineWidth(width)
	b.pdf.SetLineCapStyle("round")
	b.pdf.Line(from.X, b.page.Height-from.Y, to.X, b.page.Height-to.Y)
}

// DrawText writes text with its baseline at at.
func (b *Builder) DrawText(text string, at geom.Point, size float64, col color.RGBA) {
	b.pdf.SetFont(labelFont, "", size)
	b.pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
	b.pdf.Text(at.X, b.page.Height-at.Y, text)
}

// Save writes the finished document.
func (b *Builder) Save(w io.Writer) error {
	if err := b.pdf.Error(); err != nil {
		return err
	}
	return b.pdf.Output(w)
}
