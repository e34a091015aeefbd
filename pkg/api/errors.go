package api

import (
	"errors"
	"log/slog"

	"tilescope/internal/logging"
)

// ErrNotOpen is returned by operations on a viewer with no open document.
var ErrNotOpen = errors.New("tilescope: no document open")

// DocError reports a failure while opening a document.
type DocError struct {
	Op  string
	Err error
}

func (e *DocError) Error() string {
	return "tilescope: " + e.Op + ": " + e.Err.Error()
}

func (e *DocError) Unwrap() error {
	return e.Err
}

// SetLogger sets the logger shared by every viewer without its own.
// Pass nil to silence logging again.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}
