package capture

import (
	"context"
	"time"

	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// Error reports a capture-capability failure. Fatal errors stop the driver
// loop; non-fatal errors are logged and the loop continues.
type Error struct {
	Msg   string
	Fatal bool
}

func (e *Error) Error() string { return e.Msg }

// Source is the capture capability consumed by the driver loop. There are
// exactly two concrete variants in a full deployment — a local
// shared-memory/X11 grab and a portal-mediated stream — selected at
// construction behind this interface, never via inheritance. Both are out
// of scope for this module; Synthetic below is the in-tree stand-in that
// exercises the same contract.
type Source interface {
	// Capture returns the next available frame in BGRA at the dimensions
	// fixed at construction time.
	Capture() (*Frame, error)
	Width() int
	Height() int
	Close() error
}

// Driver repeatedly calls Capture at the configured rate and forwards
// frames to out. It owns no scratch buffer itself; Source does.
type Driver struct {
	source Source
	fps    int
	out    chan<- *Frame
}

// NewDriver creates a capture driver targeting fps frames per second,
// publishing to out.
func NewDriver(source Source, fps int, out chan<- *Frame) *Driver {
	return &Driver{source: source, fps: fps, out: out}
}

// Run drives capture until ctx is cancelled or the source reports a fatal
// error, at which point out is closed so downstream stages observe shutdown
// via channel closure.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.out)

	period := time.Second / time.Duration(max(d.fps, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		frame, err := d.source.Capture()
		if err != nil {
			if capErr, ok := err.(*Error); ok && capErr.Fatal {
				return err
			}
			util.GetLogger().Warn("capture error, continuing", "error", err)
			continue
		}

		select {
		case d.out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}

		if sleep := period - time.Since(start); sleep > 0 {
			time.Sleep(sleep)
		}
	}
}
