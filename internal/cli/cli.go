// Package cli implements the subcommands shared by the tilescope binaries.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"tilescope/pkg/api"
	"tilescope/pkg/cache"
	"tilescope/pkg/coverage"
	"tilescope/pkg/layout"
	"tilescope/pkg/tile"
)

// Command is one subcommand.
type Command struct {
	Name    string
	Summary string
	Run     func(args []string, stdout, stderr io.Writer) error
}

// errUsage reports bad arguments; the usage text has already been printed.
var errUsage = errors.New("usage")

// Commands returns the subcommands that need no display.
func Commands() []Command {
	return []Command{
		{Name: "info", Summary: "Show page sizes and document extent", Run: cmdInfo},
		{Name: "coverage", Summary: "Print which page rows each canvas row shows", Run: cmdCoverage},
		{Name: "render", Summary: "Render one frame to PNG", Run: cmdRender},
	}
}

// Main runs the subcommand named by args[0] and returns the exit code.
func Main(prog string, args []string, stdout, stderr io.Writer, extra ...Command) int {
	cmds := append(Commands(), extra...)
	if len(args) == 0 {
		printUsage(stderr, prog, cmds)
		return 2
	}

	name := args[0]
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout, prog, cmds)
		return 0
	}
	for _, c := range cmds {
		if c.Name != name {
			continue
		}
		err := c.Run(args[1:], stdout, stderr)
		switch {
		case err == nil:
			return 0
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return 2
		default:
			fmt.Fprintf(stderr, "%s %s: %v\n", prog, name, err)
			return 1
		}
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n", name)
	printUsage(stderr, prog, cmds)
	return 2
}

func printUsage(w io.Writer, prog string, cmds []Command) {
	fmt.Fprintf(w, "%s - tiled multi-page document viewer\n\nUsage:\n  %s <command> [flags]\n\nCommands:\n", prog, prog)
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.Summary)
	}
	fmt.Fprintf(w, `
Documents come from a PDF or from a synthetic page list:
  -pdf <file.pdf>         page geometry read from a PDF
  -pages <list>           e.g. "letter,3*a4,600x900,1200"

Run "%s <command> -h" for the flags of a command.
`, prog)
}

// docFlags selects a document and carries the logging switch.
type docFlags struct {
	pdf     string
	pages   string
	gap     float64
	verbose bool
}

func (d *docFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.pdf, "pdf", "", "PDF file to read page geometry from")
	fs.StringVar(&d.pages, "pages", "", "synthetic page list")
	fs.Float64Var(&d.gap, "gap", 10, "gap between pages in canvas pixels")
	fs.BoolVar(&d.verbose, "v", false, "log debug output to stderr")
}

// open resolves the document. A trailing positional .pdf argument stands
// in for -pdf.
func (d *docFlags) open(fs *flag.FlagSet, stderr io.Writer) (api.Source, string, error) {
	if d.verbose {
		api.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if d.pdf == "" && fs.NArg() > 0 && strings.HasSuffix(strings.ToLower(fs.Arg(0)), ".pdf") {
		d.pdf = fs.Arg(0)
	}
	switch {
	case d.pdf != "":
		src, err := api.OpenPDF(d.pdf)
		return src, d.pdf, err
	case d.pages != "":
		pages, err := api.ParsePages(d.pages)
		if err != nil {
			return nil, "", err
		}
		return api.OpenProof(pages), "pages " + d.pages, nil
	}
	fmt.Fprintln(stderr, "a document is required: -pdf <file.pdf> or -pages <list>")
	fs.Usage()
	return nil, "", errUsage
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func cmdInfo(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("info", stderr)
	var doc docFlags
	doc.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, name, err := doc.open(fs, stderr)
	if err != nil {
		return err
	}
	l, err := layout.Load(src, doc.gap)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Document: %s\n", name)
	fmt.Fprintln(stdout, "----------------------------------------")
	fmt.Fprintf(stdout, "Pages:  %d\n", l.PageCount())
	fmt.Fprintf(stdout, "Height: %.2f\n", l.TotalHeight())
	fmt.Fprintf(stdout, "Width:  %.2f\n\n", l.MaxWidth())
	for i := range l.PageCount() {
		d := l.Dimensions(i)
		fmt.Fprintf(stdout, "%4d  %8.2f x %-8.2f  top %10.2f\n", i+1, d.Width, d.Height, d.Top())
	}
	return nil
}

func cmdCoverage(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("coverage", stderr)
	var doc docFlags
	doc.register(fs)
	tileSize := fs.Int("tile", 256, "tile size in canvas pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, _, err := doc.open(fs, stderr)
	if err != nil {
		return err
	}
	l, err := layout.Load(src, doc.gap)
	if err != nil {
		return err
	}
	m, err := coverage.Build(l, *tileSize)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d rows of %dpx\n", m.Rows(), m.TileSize())
	for row := range m.Rows() {
		fmt.Fprintf(stdout, "%5d ", row)
		e := m.Entry(row)
		if e.Empty() {
			fmt.Fprint(stdout, " -")
		}
		for _, c := range e.Contributions() {
			fmt.Fprintf(stdout, " p%d/r%d@%g", c.Page+1, c.PageRow, c.Translation)
		}
		fmt.Fprintln(stdout)
	}
	return nil
}

// parseScreen parses WIDTHxHEIGHT.
func parseScreen(s string) (w, h float64, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		w, err = strconv.ParseFloat(ws, 64)
		if err == nil {
			h, err = strconv.ParseFloat(hs, 64)
		}
	}
	if !ok || err != nil || w < 1 || h < 1 {
		return 0, 0, fmt.Errorf("invalid screen size %q", s)
	}
	return w, h, nil
}

func cmdRender(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("render", stderr)
	var doc docFlags
	doc.register(fs)
	var (
		output   = fs.String("o", "frame.png", "output PNG file")
		screen   = fs.String("screen", "1080x1920", "screen size WIDTHxHEIGHT")
		x        = fs.Float64("x", 0, "horizontal document offset (<= 0)")
		y        = fs.Float64("y", 0, "vertical document offset (<= 0)")
		page     = fs.Int("page", 0, "scroll page N (1-based) to the top; overrides -y")
		scale    = fs.Float64("scale", 1, "viewport scale")
		zoom     = fs.Float64("zoom", 2, "device pixels per canvas pixel at scale 1")
		tileSize = fs.Int("tile", 256, "tile size in canvas pixels")
		workers  = fs.Int("workers", 0, "background fetch workers (0 fetches inline)")
		paged    = fs.Bool("paged", false, "draw whole-page snapshots instead of tiles")
		fixed    = fs.Bool("fixed", false, "keep rasters at scale class 1")
		format   = fs.String("format", "rgba8888", "raster pixel format")
		thumbs   = fs.String("thumbs", "lru", "thumbnail eviction policy: lru or distance")
		timeout  = fs.Duration("timeout", 30*time.Second, "render deadline")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	w, h, err := parseScreen(*screen)
	if err != nil {
		return err
	}
	pf, err := tile.ParseFormat(strings.ToUpper(*format))
	if err != nil {
		return err
	}
	policy := cache.ThumbLRU
	switch *thumbs {
	case "lru":
	case "distance":
		policy = cache.ThumbDistance
	default:
		return fmt.Errorf("unknown thumbnail policy %q", *thumbs)
	}
	src, name, err := doc.open(fs, stderr)
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithScreen(w, h),
		api.WithTileSize(*tileSize),
		api.WithPageGap(doc.gap),
		api.WithPixelZoom(*zoom),
		api.WithFormat(pf),
		api.WithWorkers(*workers),
		api.WithThumbnails(0.5, 100, policy),
	}
	if *paged {
		opts = append(opts, api.WithLayoutMode(api.LayoutPaged))
	}
	if *fixed {
		opts = append(opts, api.WithZoomMode(api.ZoomFixed))
	}
	v := api.NewViewer(opts...)
	if err := v.Open(src); err != nil {
		return err
	}
	defer v.Close()

	offsetY := *y
	if *page > 0 {
		l := v.Layout()
		if *page > l.PageCount() {
			return fmt.Errorf("page %d out of range (1-%d)", *page, l.PageCount())
		}
		offsetY = -l.Dimensions(*page - 1).Top()
	}
	v.SetViewport(*x, offsetY, *scale)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Fprintf(stdout, "Rendering %s at scale %g...\n", name, *scale)
	tiles, err := v.RenderFrame(ctx)
	if err != nil {
		return err
	}
	// Background fetches leave stand-ins in the first frame.
	if *workers > 0 {
		if err := v.Settle(ctx); err != nil {
			return err
		}
		if tiles, err = v.RenderFrame(ctx); err != nil {
			return err
		}
	}

	img := Flatten(tiles, int(w), int(h))
	if err := writePNG(*output, img); err != nil {
		return err
	}

	st, _ := v.Stats()
	fmt.Fprintf(stdout, "Saved %s (%dx%d pixels, %d tiles, %d stand-ins, class %d)\n",
		*output, img.Rect.Dx(), img.Rect.Dy(), st.Tiles, st.Fallbacks, st.Class)
	return nil
}

// Background is the colour behind the pages of a flattened frame.
var Background = color.RGBA{0x30, 0x30, 0x30, 0xff}

// Flatten draws a frame's tiles into one width x height image, stretching
// each to its destination rectangle.
func Flatten(tiles []api.FrameTile, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Rect, image.NewUniform(Background), image.Point{}, draw.Src)
	for _, t := range tiles {
		r := t.Dest.Image()
		if r.Intersect(dst.Rect).Empty() {
			continue
		}
		xdraw.ApproxBiLinear.Scale(dst, r, t.Image, t.Image.Rect, draw.Over, nil)
	}
	return dst
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}
