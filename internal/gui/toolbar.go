package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"tilescope/pkg/api"
)

// Toolbar holds navigation and zoom controls. Callbacks may be set after
// construction; unset ones are ignored.
type Toolbar struct {
	container *fyne.Container

	OnOpen     func()
	OnPrev     func()
	OnNext     func()
	OnFirst    func()
	OnLast     func()
	OnGoTo     func(page int)
	OnZoomIn   func()
	OnZoomOut  func()
	OnFitWidth func()
	OnFitPage  func()

	pageEntry *widget.Entry
	pageLabel *widget.Label
	prevBtn   *widget.Button
	nextBtn   *widget.Button
}

// NewToolbar creates a toolbar with every control disabled.
func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.build()
	t.Disable()
	return t
}

// call defers to the callback stored in *fn at click time.
func call(fn *func()) func() {
	return func() {
		if *fn != nil {
			(*fn)()
		}
	}
}

func (t *Toolbar) build() {
	t.prevBtn = widget.NewButtonWithIcon("", theme.NavigateBackIcon(), call(&t.OnPrev))
	t.nextBtn = widget.NewButtonWithIcon("", theme.NavigateNextIcon(), call(&t.OnNext))

	t.pageEntry = widget.NewEntry()
	t.pageEntry.SetPlaceHolder("Page")
	t.pageEntry.OnSubmitted = func(s string) {
		if page, err := strconv.Atoi(s); err == nil && t.OnGoTo != nil {
			t.OnGoTo(page - 1)
		}
	}
	t.pageLabel = widget.NewLabel("of 0")

	t.container = container.NewHBox(
		widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), call(&t.OnOpen)),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), call(&t.OnFirst)),
		t.prevBtn,
		container.NewGridWrap(fyne.NewSize(64, t.pageEntry.MinSize().Height), t.pageEntry),
		t.pageLabel,
		t.nextBtn,
		widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), call(&t.OnLast)),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("", theme.ZoomOutIcon(), call(&t.OnZoomOut)),
		widget.NewButtonWithIcon("", theme.ZoomInIcon(), call(&t.OnZoomIn)),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("Width", theme.ViewFullScreenIcon(), call(&t.OnFitWidth)),
		widget.NewButtonWithIcon("Page", theme.ViewRestoreIcon(), call(&t.OnFitPage)),
	)
}

// Container returns the toolbar container.
func (t *Toolbar) Container() *fyne.Container {
	return t.container
}

// SetPage shows current (0-based) of total and enables the page buttons
// that lead somewhere.
func (t *Toolbar) SetPage(current, total int) {
	if !t.pageEntry.Disabled() && t.pageEntry.Text != strconv.Itoa(current+1) {
		t.pageEntry.SetText(strconv.Itoa(current + 1))
	}
	t.pageLabel.SetText("of " + strconv.Itoa(total))
	setEnabled(t.prevBtn, current > 0)
	setEnabled(t.nextBtn, current < total-1)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// Enable enables the page controls.
func (t *Toolbar) Enable() {
	t.prevBtn.Enable()
	t.nextBtn.Enable()
	t.pageEntry.Enable()
}

// Disable disables the page controls and clears the page display.
func (t *Toolbar) Disable() {
	t.prevBtn.Disable()
	t.nextBtn.Disable()
	t.pageEntry.Disable()
	t.pageEntry.SetText("")
	t.pageLabel.SetText("of 0")
}

// StatusBar shows the frame and cache state.
type StatusBar struct {
	container *fyne.Container
	label     *widget.Label
	cache     *widget.Label
	zoomLabel *widget.Label
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	s := &StatusBar{
		label:     widget.NewLabel("Ready"),
		cache:     widget.NewLabel(""),
		zoomLabel: widget.NewLabel("100%"),
	}
	s.container = container.NewHBox(
		s.label,
		widget.NewSeparator(),
		s.cache,
		layout.NewSpacer(),
		s.zoomLabel,
	)
	return s
}

// Container returns the status bar container.
func (s *StatusBar) Container() *fyne.Container {
	return s.container
}

// SetStatus sets the status message.
func (s *StatusBar) SetStatus(msg string) {
	s.label.SetText(msg)
}

// SetZoom sets the zoom percentage display.
func (s *StatusBar) SetZoom(percent int) {
	s.zoomLabel.SetText(strconv.Itoa(percent) + "%")
}

// SetStats summarizes a viewer's counters.
func (s *StatusBar) SetStats(st api.Stats) {
	s.cache.SetText(fmt.Sprintf("class %d | %d tiles, %d stand-ins, %d pending | grid %d raw %d thumbs %d",
		st.Class, st.Tiles, st.Fallbacks, st.Pending,
		st.Cache.Grid.Len, st.Cache.Raw.Len, st.Cache.Thumbs.Len))
}
