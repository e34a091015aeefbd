package api

import (
	"fmt"
	"strconv"
	"strings"

	"tilescope/pkg/layout"
	"tilescope/pkg/pdfmeta"
	"tilescope/pkg/raster"
)

// Source is a document the viewer can display: it supplies page metadata
// and rasterizes page windows.
type Source interface {
	layout.Provider
	raster.Fetcher
}

// Common page sizes in points
var (
	PageSizeLetter = layout.PageSize{Width: 612, Height: 792}
	PageSizeA4     = layout.PageSize{Width: 595.28, Height: 841.89}
	PageSizeA3     = layout.PageSize{Width: 841.89, Height: 1190.55}
	PageSizeLegal  = layout.PageSize{Width: 612, Height: 1008}
)

var namedSizes = map[string]layout.PageSize{
	"letter": PageSizeLetter,
	"a4":     PageSizeA4,
	"a3":     PageSizeA3,
	"legal":  PageSizeLegal,
}

// ParsePages parses a comma-separated page list. Each item is a size name
// (letter, a4, a3, legal), WIDTHxHEIGHT, or a bare height for a page of
// letter width, optionally prefixed by a repeat count as in "3*a4".
func ParsePages(s string) ([]layout.PageSize, error) {
	var pages []layout.PageSize
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		count := 1
		if n, rest, ok := strings.Cut(item, "*"); ok {
			c, err := strconv.Atoi(n)
			if err != nil || c < 1 {
				return nil, fmt.Errorf("invalid repeat count %q", n)
			}
			count, item = c, rest
		}
		size, err := parseSize(item)
		if err != nil {
			return nil, err
		}
		for range count {
			pages = append(pages, size)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages in %q", s)
	}
	return pages, nil
}

func parseSize(s string) (layout.PageSize, error) {
	if size, ok := namedSizes[s]; ok {
		return size, nil
	}
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		h, err := strconv.ParseFloat(s, 64)
		if err != nil || h <= 0 {
			return layout.PageSize{}, fmt.Errorf("unknown page size %q", s)
		}
		return layout.PageSize{Width: PageSizeLetter.Width, Height: h}, nil
	}
	w, err := strconv.ParseFloat(ws, 64)
	if err != nil || w <= 0 {
		return layout.PageSize{}, fmt.Errorf("invalid page width %q", ws)
	}
	h, err := strconv.ParseFloat(hs, 64)
	if err != nil || h <= 0 {
		return layout.PageSize{}, fmt.Errorf("invalid page height %q", hs)
	}
	return layout.PageSize{Width: w, Height: h}, nil
}

// OpenProof returns a source that draws proof pages of the given sizes.
func OpenProof(pages []layout.PageSize) Source {
	return raster.NewProof(pages)
}

// OpenPDF reads the page geometry of the PDF at path and returns a source
// that draws proof pages with that geometry.
func OpenPDF(path string) (Source, error) {
	doc, err := pdfmeta.Open(path)
	if err != nil {
		return nil, &DocError{Op: "open " + path, Err: err}
	}
	defer doc.Close()
	return raster.NewProof(doc.Sizes()), nil
}
