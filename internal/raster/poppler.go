package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/csheth/magnifier/internal/geom"
)

// DefaultBinary is the poppler rasterizer looked up on PATH.
const DefaultBinary = "pdftoppm"

// letter is used when a page carries no usable box.
var letter = geom.Size{Width: 612, Height: 792}

// Poppler rasterizes pages by shelling out to pdftoppm. Page geometry is read
// up front so Viewport never touches the binary.
type Poppler struct {
	Binary string
	// TempDir holds the spooled source and render scratch files. Empty means
	// os.TempDir.
	TempDir string
}

// NewPoppler returns a Poppler that runs binary, or pdftoppm when empty.
func NewPoppler(binary string) *Poppler {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Poppler{Binary: binary}
}

// Available reports whether the rasterizer binary can be found.
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.Binary)
	return err == nil
}

// Open reads page geometry with the pdf reader and spools the bytes to disk
// for the rasterizer.
func (p *Poppler) Open(ctx context.Context, data []byte) (Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrOpen)
	}
	sizes, err := readPageSizes(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(p.TempDir, "magnifier-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("spool source: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("spool source: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool source: %w", err)
	}
	return &popplerDocument{binary: p.Binary, tempDir: p.TempDir, path: path, sizes: sizes}, nil
}

func readPageSizes(data []byte) (sizes []geom.Size, err error) {
	defer func() {
		if r := recover(); r != nil {
			sizes = nil
			err = fmt.Errorf("%w: %v", ErrOpen, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	count := reader.NumPage()
	if count == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrOpen)
	}
	sizes = make([]geom.Size, count)
	for i := 1; i <= count; i++ {
		sizes[i-1] = pageSize(reader.Page(i).V)
	}
	return sizes, nil
}

// pageSize reads the crop box (falling back to the media box) through the
// page tree, honoring quarter-turn rotation.
func pageSize(page pdf.Value) geom.Size {
	size := letter
	for _, key := range []string{"CropBox", "MediaBox"} {
		box := inherited(page, key)
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
		h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
		if w > 0 && h > 0 {
			size = geom.Size{Width: w, Height: h}
			break
		}
	}
	if rotate := inherited(page, "Rotate"); !rotate.IsNull() && (rotate.Int64()/90)%2 != 0 {
		size = geom.Size{Width: size.Height, Height: size.Width}
	}
	return size
}

func inherited(node pdf.Value, key string) pdf.Value {
	for depth := 0; !node.IsNull() && depth < 32; depth++ {
		if v := node.Key(key); !v.IsNull() {
			return v
		}
		node = node.Key("Parent")
	}
	return pdf.Value{}
}

type popplerDocument struct {
	binary  string
	tempDir string
	path    string
	sizes   []geom.Size
}

func (d *popplerDocument) NumPages() int { return len(d.sizes) }

func (d *popplerDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.sizes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, n, len(d.sizes))
	}
	return &popplerPage{doc: d, number: n, size: d.sizes[n-1]}, nil
}

func (d *popplerDocument) Close() error {
	return os.Remove(d.path)
}

type popplerPage struct {
	doc    *popplerDocument
	number int
	size   geom.Size
}

func (p *popplerPage) Viewport(scale float64) geom.Size {
	return geom.Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
}

// Render asks pdftoppm for exactly the visible window of the page at
// 72*scale DPI and copies it into dst at the transform offset.
func (p *popplerPage) Render(ctx context.Context, dst draw.Image, t geom.Transform) error {
	if t.Scale <= 0 {
		return fmt.Errorf("render page %d: invalid scale %v", p.number, t.Scale)
	}
	visible := PixelBounds(geom.Rect{Width: p.size.Width, Height: p.size.Height}, t).Intersect(dst.Bounds())
	if visible.Empty() {
		return nil
	}
	origin := image.Pt(int(math.Round(t.X)), int(math.Round(t.Y)))
	crop := visible.Sub(origin)
	if crop.Min.X < 0 {
		crop.Min.X = 0
	}
	if crop.Min.Y < 0 {
		crop.Min.Y = 0
	}

	dir, err := os.MkdirTemp(p.doc.tempDir, "magnifier-render-*")
	if err != nil {
		return fmt.Errorf("render page %d: %w", p.number, err)
	}
	defer os.RemoveAll(dir)
	prefix := filepath.Join(dir, "page")

	page := strconv.Itoa(p.number)
	cmd := exec.CommandContext(ctx, p.doc.binary,
		"-png",
		"-singlefile",
		"-cropbox",
		"-f", page,
		"-l", page,
		"-r", strconv.FormatFloat(72*t.Scale, 'f', 4, 64),
		"-x", strconv.Itoa(crop.Min.X),
		"-y", strconv.Itoa(crop.Min.Y),
		"-W", strconv.Itoa(crop.Dx()),
		"-H", strconv.Itoa(crop.Dy()),
		p.doc.path,
		prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("render page %d: pdftoppm: %w: %s", p.number, err, bytes.TrimSpace(stderr.Bytes()))
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return fmt.Errorf("render page %d: %w", p.number, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return fmt.Errorf("render page %d: decode: %w", p.number, err)
	}
	at := origin.Add(crop.Min)
	target := image.Rectangle{Min: at, Max: at.Add(img.Bounds().Size())}.Intersect(visible)
	draw.Draw(dst, target, img, img.Bounds().Min, draw.Src)
	return nil
}
