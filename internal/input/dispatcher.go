package input

import (
	"context"

	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// Dispatcher routes decoded protocol.InputEvent values to the pointer,
// touch, and stylus virtual devices. Keyboard events are logged but not
// injected: this server has no virtual keyboard device, only the pointing
// devices a remote desktop's touch and pen surfaces need.
type Dispatcher struct {
	Pointer *Pointer
	Touch   *Touch
	Stylus  *Stylus
}

// Run consumes events until ctx is cancelled or the channel closes,
// dispatching each to the appropriate device and logging any error without
// stopping the loop, the way a single bad event shouldn't end a session.
func (d *Dispatcher) Run(ctx context.Context, events <-chan protocol.InputEvent) {
	log := util.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := d.dispatch(ev); err != nil {
				log.Warn("input event dispatch failed", "type", ev.Type, "error", err)
			}
		}
	}
}

func (d *Dispatcher) dispatch(ev protocol.InputEvent) error {
	switch ev.Type {
	case protocol.EventMouseMove:
		return d.Pointer.MouseMove(ev.X, ev.Y)
	case protocol.EventMouseDown:
		return d.Pointer.MouseDown(penButtonIndex(ev.Button), ev.X, ev.Y)
	case protocol.EventMouseUp:
		return d.Pointer.MouseUp(penButtonIndex(ev.Button), ev.X, ev.Y)
	case protocol.EventScroll:
		return d.Pointer.Scroll(ev.DX, ev.DY)

	case protocol.EventTouchStart:
		return d.Touch.TouchStart(ev.ID, ev.X, ev.Y)
	case protocol.EventTouchMove:
		return d.Touch.TouchMove(ev.ID, ev.X, ev.Y)
	case protocol.EventTouchEnd:
		return d.Touch.TouchEnd(ev.ID)
	case protocol.EventTouchCancel:
		return d.Touch.TouchCancel(ev.ID)

	case protocol.EventPenHover:
		return d.Stylus.PenHover(ev.X, ev.Y, ev.Pressure, ev.TiltX, ev.TiltY)
	case protocol.EventPenDown:
		return d.Stylus.PenDown(ev.X, ev.Y, ev.Pressure, ev.TiltX, ev.TiltY, ev.Button)
	case protocol.EventPenMove:
		return d.Stylus.PenMove(ev.X, ev.Y, ev.Pressure, ev.TiltX, ev.TiltY)
	case protocol.EventPenUp:
		return d.Stylus.PenUp(ev.X, ev.Y)
	case protocol.EventPenButtonEvent:
		return d.Stylus.PenButton(ev.Button, ev.Pressed)

	case protocol.EventKeyDown, protocol.EventKeyUp:
		util.GetLogger().Debug("keyboard event ignored, no virtual keyboard device", "key", ev.Key)
		return nil

	default:
		util.GetLogger().Debug("unrecognized input event type", "type", ev.Type)
		return nil
	}
}

// penButtonIndex maps the wire PenButton used for mouse events onto the
// button index Pointer expects: Secondary -> 2 (right), Tertiary -> 1
// (middle), anything else (Primary, Eraser) -> 0 (left).
func penButtonIndex(button protocol.PenButton) int {
	switch button {
	case protocol.PenButtonSecondary:
		return 2
	case protocol.PenButtonTertiary:
		return 1
	default:
		return 0
	}
}
