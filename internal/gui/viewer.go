package gui

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"tilescope/internal/logging"
	"tilescope/pkg/api"
)

const (
	zoomStep = 1.25
	// settleDelay is how long zoom input must pause before the scale class
	// follows the new scale.
	settleDelay = 250 * time.Millisecond
	// pollDelay paces redraws while stand-ins wait for background fetches.
	pollDelay = 50 * time.Millisecond
)

// TileView is a widget showing a document through an api.Viewer. Dragging
// pans, the scroll wheel scrolls, and zoom steps are treated as a pinch
// that settles after a short pause.
type TileView struct {
	widget.BaseWidget

	viewer *api.Viewer

	// OnChanged is called after every frame.
	OnChanged func()

	mu         sync.Mutex
	settle     *time.Timer
	pollQueued bool
}

// NewTileView creates a view drawing frames from viewer.
func NewTileView(viewer *api.Viewer) *TileView {
	v := &TileView{viewer: viewer}
	v.ExtendBaseWidget(v)
	return v
}

// Viewer returns the viewer behind the widget.
func (v *TileView) Viewer() *api.Viewer {
	return v.viewer
}

// CreateRenderer creates the renderer for this widget.
func (v *TileView) CreateRenderer() fyne.WidgetRenderer {
	r := &tileViewRenderer{
		view: v,
		bg:   canvas.NewRectangle(color.Gray{Y: 0x30}),
	}
	r.objects = []fyne.CanvasObject{r.bg}
	return r
}

// Dragged pans the document with the pointer.
func (v *TileView) Dragged(ev *fyne.DragEvent) {
	x, y, scale := v.viewer.Viewport()
	v.move(x+float64(ev.Dragged.DX)/scale, y+float64(ev.Dragged.DY)/scale, scale)
}

// DragEnd implements fyne.Draggable.
func (v *TileView) DragEnd() {}

// Scrolled scrolls the document vertically.
func (v *TileView) Scrolled(ev *fyne.ScrollEvent) {
	x, y, scale := v.viewer.Viewport()
	v.move(x+float64(ev.Scrolled.DX)/scale, y+float64(ev.Scrolled.DY)/scale, scale)
}

// ScrollBy moves the view by (dx, dy) screen units.
func (v *TileView) ScrollBy(dx, dy float64) {
	x, y, scale := v.viewer.Viewport()
	v.move(x+dx/scale, y+dy/scale, scale)
}

// ZoomIn magnifies around the widget centre.
func (v *TileView) ZoomIn() {
	_, _, scale := v.viewer.Viewport()
	v.ZoomTo(scale * zoomStep)
}

// ZoomOut shrinks around the widget centre.
func (v *TileView) ZoomOut() {
	_, _, scale := v.viewer.Viewport()
	v.ZoomTo(scale / zoomStep)
}

// ZoomTo changes the scale keeping the widget centre fixed. Tiles are
// stretched until zooming pauses, then re-rasterized.
func (v *TileView) ZoomTo(scale float64) {
	size := v.Size()
	cx, cy := float64(size.Width)/2, float64(size.Height)/2
	x, y, old := v.viewer.Viewport()

	v.viewer.BeginPinch()
	scale = v.viewer.Options().ClampScale(scale)
	// Keep the canvas point under the centre where it is.
	x = cx/scale - (cx/old - x)
	y = cy/scale - (cy/old - y)
	v.move(x, y, scale)

	v.mu.Lock()
	if v.settle != nil {
		v.settle.Stop()
	}
	v.settle = time.AfterFunc(settleDelay, func() {
		v.viewer.EndPinch()
		v.Refresh()
	})
	v.mu.Unlock()
}

// FitWidth scales the widest page to the widget width.
func (v *TileView) FitWidth() {
	l := v.viewer.Layout()
	if l == nil {
		return
	}
	_, y, _ := v.viewer.Viewport()
	scale := v.viewer.Options().ClampScale(float64(v.Size().Width) / l.MaxWidth())
	v.move(0, y, scale)
}

// FitPage scales the current page to fit the widget and shows it whole.
func (v *TileView) FitPage() {
	l := v.viewer.Layout()
	if l == nil {
		return
	}
	page := v.CurrentPage()
	dim := l.Dimensions(page)
	size := v.Size()
	scale := min(float64(size.Width)/dim.Width, float64(size.Height)/dim.Height)
	v.move(0, -dim.Top(), v.viewer.Options().ClampScale(scale))
}

// GoToPage scrolls page to the top of the widget.
func (v *TileView) GoToPage(page int) {
	l := v.viewer.Layout()
	if l == nil {
		return
	}
	page = max(0, min(page, l.PageCount()-1))
	x, _, scale := v.viewer.Viewport()
	v.move(x, -l.Dimensions(page).Top(), scale)
}

// CurrentPage returns the page at the vertical centre of the widget.
func (v *TileView) CurrentPage() int {
	l := v.viewer.Layout()
	if l == nil {
		return 0
	}
	_, y, scale := v.viewer.Viewport()
	mid := -y + float64(v.Size().Height)/(2*scale)
	if page, ok := l.PageAt(mid); ok {
		return page
	}
	// In a gap or past the end: the last page starting above mid.
	pages := l.PagesInRange(0, mid)
	if len(pages) == 0 {
		return 0
	}
	return pages[len(pages)-1]
}

// move clamps the offsets to the document and redraws.
func (v *TileView) move(x, y, scale float64) {
	if l := v.viewer.Layout(); l != nil {
		size := v.Size()
		x = clampOffset(x, l.MaxWidth(), float64(size.Width)/scale)
		y = clampOffset(y, l.TotalHeight(), float64(size.Height)/scale)
	}
	v.viewer.SetViewport(x, y, scale)
	v.Refresh()
}

// clampOffset keeps a document of length extent inside a window of length
// visible, pinning short documents to the origin.
func clampOffset(offset, extent, visible float64) float64 {
	lowest := min(visible-extent, 0)
	return min(max(offset, lowest), 0)
}

// poll schedules one redraw while background fetches are outstanding.
func (v *TileView) poll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pollQueued {
		return
	}
	v.pollQueued = true
	time.AfterFunc(pollDelay, func() {
		v.mu.Lock()
		v.pollQueued = false
		v.mu.Unlock()
		v.Refresh()
	})
}

// tileViewRenderer keeps one canvas image per frame tile, reusing them
// across frames.
type tileViewRenderer struct {
	view    *TileView
	bg      *canvas.Rectangle
	images  []*canvas.Image
	objects []fyne.CanvasObject
}

func (r *tileViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
}

func (r *tileViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 200)
}

func (r *tileViewRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *tileViewRenderer) Refresh() {
	tiles, err := r.view.viewer.RenderFrame(context.Background())
	if err != nil && !errors.Is(err, api.ErrNotOpen) {
		logging.Logger().Warn("frame failed", "err", err)
	}

	for len(r.images) < len(tiles) {
		img := canvas.NewImageFromImage(nil)
		img.FillMode = canvas.ImageFillStretch
		img.ScaleMode = canvas.ImageScaleFastest
		r.images = append(r.images, img)
		r.objects = append(r.objects, img)
	}
	for i, ft := range tiles {
		img := r.images[i]
		img.Image = ft.Image
		img.Move(fyne.NewPos(float32(ft.Dest.X), float32(ft.Dest.Y)))
		img.Resize(fyne.NewSize(float32(ft.Dest.W), float32(ft.Dest.H)))
		img.Show()
		img.Refresh()
	}
	for _, img := range r.images[len(tiles):] {
		img.Image = nil
		img.Hide()
	}
	r.bg.Refresh()

	if st, err := r.view.viewer.Stats(); err == nil && st.Pending > 0 {
		r.view.poll()
	}
	if r.view.OnChanged != nil {
		r.view.OnChanged()
	}
}

func (r *tileViewRenderer) Destroy() {}
