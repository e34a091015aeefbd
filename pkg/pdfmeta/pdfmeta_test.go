package pdfmeta

import (
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/page"

	"tilescope/pkg/layout"
)

// writePDF writes an empty page for each MediaBox in boxes, rotating the
// pages listed in rotate by 90 degrees.
func writePDF(t *testing.T, boxes []*pdf.Rectangle, rotate map[int]bool) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "pages.pdf")
	doc, err := document.CreateMultiPage(name, document.Letter, pdf.V1_7, nil)
	if err != nil {
		t.Fatalf("CreateMultiPage() error = %v", err)
	}
	for i, box := range boxes {
		p := doc.AddPage()
		p.SetPageSize(box)
		if rotate[i] {
			p.Page.Rotate = page.Rotate90
		}
		if err := p.Close(); err != nil {
			t.Fatalf("page %d Close() error = %v", i, err)
		}
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return name
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Open(missing) error = nil, want error")
	}
}

func TestOpenNotAPDF(t *testing.T) {
	name := filepath.Join(t.TempDir(), "junk.pdf")
	if err := os.WriteFile(name, []byte("this is not a PDF file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(name); err == nil {
		t.Error("Open(junk) error = nil, want error")
	}
}

func TestPageDimensionsFeedLayout(t *testing.T) {
	d := &Document{sizes: []layout.PageSize{{Width: 612, Height: 792}, {Width: 842, Height: 595}}}

	metrics, err := d.PageDimensions()
	if err != nil {
		t.Fatalf("PageDimensions() error = %v", err)
	}
	if got := metrics[1].CumulativeHeight; got != 792+595 {
		t.Errorf("CumulativeHeight[1] = %v, want %v", got, 792+595)
	}

	l, err := layout.Load(d, 10)
	if err != nil {
		t.Fatalf("layout.Load() error = %v", err)
	}
	if got := l.TotalHeight(); got != 792+10+595 {
		t.Errorf("TotalHeight() = %v, want %v", got, 792+10+595)
	}
	if got := l.MaxWidth(); got != 842 {
		t.Errorf("MaxWidth() = %v, want 842", got)
	}
}

func TestOpenReadsMediaBoxes(t *testing.T) {
	name := writePDF(t, []*pdf.Rectangle{
		{URx: 400, URy: 300},
		{LLx: 10, LLy: 20, URx: 310, URy: 520},
		{},
	}, map[int]bool{1: true})

	d, err := Open(name)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	want := []layout.PageSize{
		{Width: 400, Height: 300},
		// 300x500 turned on its side.
		{Width: 500, Height: 300},
		// An empty MediaBox falls back to US Letter.
		{Width: defaultWidth, Height: defaultHeight},
	}
	if got := d.PageCount(); got != len(want) {
		t.Fatalf("PageCount() = %d, want %d", got, len(want))
	}
	for i, got := range d.Sizes() {
		if got != want[i] {
			t.Errorf("Sizes()[%d] = %v, want %v", i, got, want[i])
		}
	}
}
