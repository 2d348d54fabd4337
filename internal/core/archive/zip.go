package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Packager accumulates named rendered parts and produces one ZIP
// container. Parts are stored in the order they are added.
type Packager struct {
	buf   bytes.Buffer
	zw    *zip.Writer
	parts int
}

// NewPackager creates an empty in-memory packager.
func NewPackager() *Packager {
	p := &Packager{}
	p.zw = zip.NewWriter(&p.buf)
	return p
}

// AddPart appends one named part to the container.
func (p *Packager) AddPart(name string, content []byte) error {
	w, err := p.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create part %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write part %s: %w", name, err)
	}
	p.parts++
	return nil
}

// Parts reports how many parts have been added.
func (p *Packager) Parts() int {
	return p.parts
}

// Finalize closes the container and returns its bytes. The packager
// must not be used afterwards.
func (p *Packager) Finalize() ([]byte, error) {
	if err := p.zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return p.buf.Bytes(), nil
}

// PartName renders the container entry name for a chunk part.
func PartName(index int, ext string) string {
	return fmt.Sprintf("part_%d.%s", index, ext)
}
