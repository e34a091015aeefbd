// Package pdfmeta reads page geometry from a PDF file. It supplies the
// layout metadata for real documents; one PDF point is one canvas pixel.
package pdfmeta

import (
	"fmt"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"tilescope/pkg/layout"
)

// US Letter, used when a page has no usable MediaBox.
const (
	defaultWidth  = 612
	defaultHeight = 792
)

// Document holds the page sizes of an open PDF.
type Document struct {
	r     *pdf.Reader
	sizes []layout.PageSize
}

// Open reads the page tree of the PDF at path.
func Open(path string) (*Document, error) {
	r, err := pdf.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	n, err := pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	d := &Document{r: r, sizes: make([]layout.PageSize, n)}
	for i := range n {
		size, err := d.pageSize(i)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		d.sizes[i] = size
	}
	return d, nil
}

// pageSize returns the displayed size of page i, honouring /Rotate.
func (d *Document) pageSize(i int) (layout.PageSize, error) {
	_, dict, err := pagetree.GetPage(d.r, i)
	if err != nil {
		return layout.PageSize{}, fmt.Errorf("failed to get page: %w", err)
	}

	size := layout.PageSize{Width: defaultWidth, Height: defaultHeight}
	box, err := pdf.GetArray(d.r, dict["MediaBox"])
	if err == nil && len(box) >= 4 {
		var v [4]float64
		ok := true
		for j := range v {
			num, err := pdf.GetNumber(d.r, box[j])
			if err != nil {
				ok = false
				break
			}
			v[j] = float64(num)
		}
		if w, h := abs(v[2]-v[0]), abs(v[3]-v[1]); ok && w > 0 && h > 0 {
			size = layout.PageSize{Width: w, Height: h}
		}
	}

	if rot, err := pdf.GetInteger(d.r, dict["Rotate"]); err == nil && rot%180 != 0 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.sizes)
}

// Sizes returns a copy of the page sizes in points.
func (d *Document) Sizes() []layout.PageSize {
	return append([]layout.PageSize(nil), d.sizes...)
}

// PageDimensions returns each page's size and the running sum of page
// heights.
func (d *Document) PageDimensions() ([]layout.Metrics, error) {
	out := make([]layout.Metrics, len(d.sizes))
	var cum float64
	for i, s := range d.sizes {
		cum += s.Height
		out[i] = layout.Metrics{Width: s.Width, Height: s.Height, CumulativeHeight: cum}
	}
	return out, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.r.Close()
}
