package tex2pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// Document is a decoded PDF: its bytes and the page count read from the
// same bytes. It is immutable after construction.
type Document struct {
	raw   []byte
	pages int
}

// DecodeFile reads the PDF at path and counts its pages. A missing file,
// an empty file or one the PDF parser rejects yields ErrDecode.
func DecodeFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is inside a work directory we created
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	doc, err := decodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return doc, nil
}

// decodeBytes parses raw enough to read the page tree count.
func decodeBytes(raw []byte) (doc *Document, err error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	pages := reader.NumPage()
	if pages < 0 {
		return nil, fmt.Errorf("invalid page count %d", pages)
	}
	return &Document{raw: raw, pages: pages}, nil
}

// Bytes returns the PDF content. The slice must not be modified.
func (d *Document) Bytes() []byte { return d.raw }

// PageCount returns the number of pages in the page tree.
func (d *Document) PageCount() int { return d.pages }

// Size returns the PDF size in bytes.
func (d *Document) Size() int { return len(d.raw) }

// WriteTo writes the PDF to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.raw)
	return int64(n), err
}
