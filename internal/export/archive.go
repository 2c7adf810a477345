package export

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Archive bundles named files.
type Archive interface {
	Add(name string, data []byte) error
	Finalize() ([]byte, error)
}

// ZipArchive is an in-memory zip bundle.
type ZipArchive struct {
	buf bytes.Buffer
	w   *zip.Writer
}

// NewZipArchive returns an empty bundle.
func NewZipArchive() *ZipArchive {
	a := &ZipArchive{}
	a.w = zip.NewWriter(&a.buf)
	return a
}

func (a *ZipArchive) Add(name string, data []byte) error {
	f, err := a.w.Create(name)
	if err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	return nil
}

// Finalize closes the bundle and returns its bytes.
func (a *ZipArchive) Finalize() ([]byte, error) {
	if err := a.w.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return a.buf.Bytes(), nil
}
