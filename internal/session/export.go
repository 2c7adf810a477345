package session

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/csheth/magnifier/internal/config"
	"github.com/csheth/magnifier/internal/export"
)

// Result describes a finished export.
type Result struct {
	Path     string
	Drawn    []export.Drawn
	Bytes    int
	Duration time.Duration
}

type exportInput struct {
	id    string
	src   []byte
	pages []export.Page
}

func (s *Session) exportInput() (exportInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return exportInput{}, fmt.Errorf("%w: %w", export.ErrExport, ErrNoDocument)
	}
	in := exportInput{id: s.id, src: s.src}
	for i := 0; i < len(s.sizes)+len(s.compositions); i++ {
		p, _ := s.pageLocked(i)
		in.pages = append(in.pages, p)
	}
	return in, nil
}

func (s *Session) imageExporter() *export.ImageExporter {
	exp := export.NewImageExporter(s.opts.ExportDPI)
	if s.opts.ArrowColor != "" {
		if col, err := config.ParseHexColor(s.opts.ArrowColor); err == nil {
			exp.Arrow = col
		} else {
			log.Printf("[export] arrow color: %v", err)
		}
	}
	return exp
}

// ExportImages renders every page with its callouts and writes the PNG
// bundle to the output directory.
func (s *Session) ExportImages(ctx context.Context) (Result, error) {
	started := time.Now()
	in, err := s.exportInput()
	if err != nil {
		return Result{}, err
	}
	set := s.Snapshot()
	archive := export.NewZipArchive()
	drawn, err := s.imageExporter().Export(ctx, in.pages, set, s, archive)
	if err != nil {
		return Result{}, err
	}
	data, err := archive.Finalize()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", export.ErrExport, err)
	}
	path, err := s.write(export.ImagesBundleName, data)
	if err != nil {
		return Result{}, err
	}
	log.Printf("[export] %s wrote %s (%d callouts)", in.id, path, len(drawn))
	return Result{Path: path, Drawn: drawn, Bytes: len(data), Duration: time.Since(started)}, nil
}

// ExportDocument rebuilds the source with the callouts drawn in and writes
// it to the output directory once the result validates.
func (s *Session) ExportDocument(ctx context.Context) (Result, error) {
	started := time.Now()
	if s.opts.NewBuilder == nil {
		return Result{}, fmt.Errorf("%w: no document builder configured", export.ErrExport)
	}
	in, err := s.exportInput()
	if err != nil {
		return Result{}, err
	}
	set := s.Snapshot()
	exp := &export.DocumentExporter{NewBuilder: s.opts.NewBuilder}
	var buf bytes.Buffer
	drawn, err := exp.Export(ctx, in.src, in.pages, set, s, &buf)
	if err != nil {
		return Result{}, err
	}
	if err := s.opts.Validate(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("%w: output validation: %w", export.ErrExport, err)
	}
	path, err := s.write(export.DocumentName, buf.Bytes())
	if err != nil {
		return Result{}, err
	}
	log.Printf("[export] %s wrote %s (%d callouts)", in.id, path, len(drawn))
	return Result{Path: path, Drawn: drawn, Bytes: buf.Len(), Duration: time.Since(started)}, nil
}

// write stores data under name in the output directory. A temp file is
// renamed into place so a failed write never leaves a truncated export.
func (s *Session) write(name string, data []byte) (string, error) {
	dir := s.opts.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", export.ErrExport, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", export.ErrExport, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %w", export.ErrExport, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %w", export.ErrExport, name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %w", export.ErrExport, name, err)
	}
	return path, nil
}
