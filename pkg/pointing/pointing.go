// Package pointing abstracts the pointing-UI lifecycle helper. When the
// modem capabilities require pointing, the controller starts the UI on
// enable and stops it when the modem turns off.
package pointing

import "sync/atomic"

// Launcher starts and stops the device pointing UI. Implementations must
// be thread-safe; the controller calls them from its worker goroutine.
type Launcher interface {
	// StartUI brings up the pointing UI. fullScreen requests full-screen
	// mode (used for SOS datagrams). Starting an already-started UI is a
	// no-op.
	StartUI(fullScreen bool)

	// StopUI tears down the pointing UI. Stopping a stopped UI is a
	// no-op.
	StopUI()
}

// Noop ignores all lifecycle calls. Use on devices without a pointing UI.
// Noop is safe for concurrent use and usable as a zero value.
type Noop struct{}

func (Noop) StartUI(bool) {}
func (Noop) StopUI()      {}

// Recorder counts lifecycle calls for tests.
type Recorder struct {
	starts           atomic.Int32
	fullScreenStarts atomic.Int32
	stops            atomic.Int32
}

// NewRecorder creates a new recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) StartUI(fullScreen bool) {
	r.starts.Add(1)
	if fullScreen {
		r.fullScreenStarts.Add(1)
	}
}

func (r *Recorder) StopUI() { r.stops.Add(1) }

// Starts returns the number of StartUI calls.
func (r *Recorder) Starts() int { return int(r.starts.Load()) }

// FullScreenStarts returns the number of StartUI calls with fullScreen
// set.
func (r *Recorder) FullScreenStarts() int { return int(r.fullScreenStarts.Load()) }

// Stops returns the number of StopUI calls.
func (r *Recorder) Stops() int { return int(r.stops.Load()) }

var (
	_ Launcher = Noop{}
	_ Launcher = (*Recorder)(nil)
)
