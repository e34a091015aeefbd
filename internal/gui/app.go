// Package gui provides a native desktop viewer using Fyne.
package gui

import (
	"fmt"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"

	"tilescope/internal/logging"
	"tilescope/pkg/api"
)

// App is the viewer application window.
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window

	viewer  *api.Viewer
	view    *TileView
	toolbar *Toolbar
	status  *StatusBar
}

// NewApp creates the application. opts configure the viewer; its screen
// size should cover the largest expected window.
func NewApp(opts ...api.Option) *App {
	a := &App{
		fyneApp: app.New(),
		viewer:  api.NewViewer(opts...),
	}
	a.fyneApp.Settings().SetTheme(theme.DarkTheme())
	a.mainWindow = a.fyneApp.NewWindow("tilescope")
	a.mainWindow.Resize(fyne.NewSize(900, 700))
	a.mainWindow.SetOnClosed(func() { a.viewer.Close() })
	return a
}

// Run starts the application with nothing open.
func (a *App) Run() {
	a.buildUI()
	a.mainWindow.ShowAndRun()
}

// RunWithFile starts the application with the PDF at path open.
func (a *App) RunWithFile(path string) {
	a.buildUI()
	if err := a.loadFile(path); err != nil {
		dialog.ShowError(err, a.mainWindow)
	}
	a.mainWindow.ShowAndRun()
}

// RunWithSource starts the application showing src.
func (a *App) RunWithSource(src api.Source, title string) {
	a.buildUI()
	if err := a.load(src, title); err != nil {
		dialog.ShowError(err, a.mainWindow)
	}
	a.mainWindow.ShowAndRun()
}

func (a *App) buildUI() {
	a.view = NewTileView(a.viewer)
	a.view.OnChanged = a.update
	a.toolbar = NewToolbar()
	a.status = NewStatusBar()

	a.toolbar.OnOpen = a.openFile
	a.toolbar.OnPrev = func() { a.view.GoToPage(a.view.CurrentPage() - 1) }
	a.toolbar.OnNext = func() { a.view.GoToPage(a.view.CurrentPage() + 1) }
	a.toolbar.OnFirst = func() { a.view.GoToPage(0) }
	a.toolbar.OnLast = func() { a.view.GoToPage(math.MaxInt) }
	a.toolbar.OnGoTo = a.view.GoToPage
	a.toolbar.OnZoomIn = a.view.ZoomIn
	a.toolbar.OnZoomOut = a.view.ZoomOut
	a.toolbar.OnFitWidth = a.view.FitWidth
	a.toolbar.OnFitPage = a.view.FitPage

	// The scroll container only clips; the view handles its own panning.
	clip := container.NewScroll(a.view)
	clip.Direction = container.ScrollNone

	a.mainWindow.SetContent(container.NewBorder(
		container.NewPadded(a.toolbar.Container()),
		a.status.Container(),
		nil,
		nil,
		clip,
	))
	a.mainWindow.Canvas().SetOnTypedKey(a.handleKey)
}

// handleKey handles keyboard navigation.
func (a *App) handleKey(key *fyne.KeyEvent) {
	page := float64(a.view.Size().Height) * 0.9
	switch key.Name {
	case fyne.KeyUp:
		a.view.ScrollBy(0, 40)
	case fyne.KeyDown:
		a.view.ScrollBy(0, -40)
	case fyne.KeyLeft:
		a.view.ScrollBy(40, 0)
	case fyne.KeyRight:
		a.view.ScrollBy(-40, 0)
	case fyne.KeyPageUp:
		a.view.ScrollBy(0, page)
	case fyne.KeyPageDown, fyne.KeySpace:
		a.view.ScrollBy(0, -page)
	case fyne.KeyHome:
		a.view.GoToPage(0)
	case fyne.KeyEnd:
		a.view.GoToPage(math.MaxInt)
	case fyne.KeyPlus, fyne.KeyEqual:
		a.view.ZoomIn()
	case fyne.KeyMinus:
		a.view.ZoomOut()
	}
}

// openFile shows a file dialog and loads the selected PDF.
func (a *App) openFile() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		if err := a.loadFile(reader.URI().Path()); err != nil {
			dialog.ShowError(err, a.mainWindow)
		}
	}, a.mainWindow)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	d.Show()
}

func (a *App) loadFile(path string) error {
	src, err := api.OpenPDF(path)
	if err != nil {
		return err
	}
	return a.load(src, path)
}

func (a *App) load(src api.Source, title string) error {
	if err := a.viewer.Open(src); err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	logging.Logger().Info("showing document", "title", title)
	a.mainWindow.SetTitle("tilescope - " + title)
	a.toolbar.Enable()
	a.view.FitWidth()
	return nil
}

// update mirrors the viewer state into the toolbar and status bar.
func (a *App) update() {
	l := a.viewer.Layout()
	if l == nil {
		a.toolbar.Disable()
		a.status.SetStatus("No document loaded")
		return
	}
	page := a.view.CurrentPage()
	a.toolbar.SetPage(page, l.PageCount())
	a.status.SetStatus(fmt.Sprintf("Page %d of %d", page+1, l.PageCount()))

	_, _, scale := a.viewer.Viewport()
	a.status.SetZoom(int(math.Round(scale * 100)))
	if st, err := a.viewer.Stats(); err == nil {
		a.status.SetStats(st)
	}
}
