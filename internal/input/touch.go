// Package input translates normalized protocol.InputEvent coordinates into
// virtual device calls: a protocol-B multitouch touchscreen, a Wacom-class
// stylus, and an absolute-pointer mouse with a relative scroll wheel.
package input

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/uinput"
)

const defaultMaxSlots = 10

// Touch drives a Multitouch device, tracking client touch IDs to device
// slots the way a protocol-B driver expects: a client's touch ID is stable
// across its lifetime, but the device only understands a small, reusable
// set of slots, each carrying its own kernel tracking ID.
type Touch struct {
	mu sync.Mutex

	dev    *uinput.Multitouch
	width  float64
	height float64
	offX   float64
	offY   float64

	activeTouches  map[int]int // client touch id -> slot
	nextTrackingID int32
}

// NewTouch creates a touchscreen covering [offsetX, offsetX+width) x
// [offsetY, offsetY+height) in device coordinates, with room for up to 10
// simultaneous contacts.
func NewTouch(width, height, offsetX, offsetY int) (*Touch, error) {
	dev, err := uinput.NewMultitouch("LinGlide Touchscreen", width, height, offsetX, offsetY, defaultMaxSlots)
	if err != nil {
		return nil, err
	}
	return &Touch{
		dev:           dev,
		width:         float64(width),
		height:        float64(height),
		offX:          float64(offsetX),
		offY:          float64(offsetY),
		activeTouches: make(map[int]int),
	}, nil
}

func (t *Touch) toAbsolute(x, y float64) (int32, int32) {
	absX := int32(x*t.width) + int32(t.offX)
	absY := int32(y*t.height) + int32(t.offY)
	return absX, absY
}

// findFreeSlot returns the lowest-numbered slot not currently assigned to a
// touch, or -1 if every slot is in use.
func (t *Touch) findFreeSlot() int {
	used := make(map[int]bool, len(t.activeTouches))
	for _, slot := range t.activeTouches {
		used[slot] = true
	}
	for slot := 0; slot < t.dev.MaxSlots; slot++ {
		if !used[slot] {
			return slot
		}
	}
	return -1
}

// TouchStart begins tracking a new contact, assigning it a free slot and a
// fresh tracking ID.
func (t *Touch) TouchStart(id int, x, y float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := t.findFreeSlot()
	if slot < 0 {
		return errors.New("input: no available touch slots")
	}

	trackingID := t.nextTrackingID
	t.nextTrackingID = (t.nextTrackingID + 1) & 0xFFFF // wraps within the device's 16-bit tracking ID range
	t.activeTouches[id] = slot

	absX, absY := t.toAbsolute(x, y)

	if err := t.dev.SetSlot(slot); err != nil {
		return errors.Wrap(err, "input: touch start")
	}
	if err := t.dev.SetTrackingID(trackingID); err != nil {
		return errors.Wrap(err, "input: touch start")
	}
	if err := t.dev.SetPosition(absX, absY); err != nil {
		return errors.Wrap(err, "input: touch start")
	}
	if err := t.dev.SetTouch(true); err != nil {
		return errors.Wrap(err, "input: touch start")
	}
	return t.dev.Sync()
}

// TouchMove updates the position of an already-active contact.
func (t *Touch) TouchMove(id int, x, y float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.activeTouches[id]
	if !ok {
		return errors.Errorf("input: unknown touch id %d", id)
	}

	absX, absY := t.toAbsolute(x, y)

	if err := t.dev.SetSlot(slot); err != nil {
		return errors.Wrap(err, "input: touch move")
	}
	if err := t.dev.SetPosition(absX, absY); err != nil {
		return errors.Wrap(err, "input: touch move")
	}
	return t.dev.Sync()
}

// TouchEnd releases a contact's slot, sending BTN_TOUCH up only once every
// contact has been released.
func (t *Touch) TouchEnd(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.activeTouches[id]
	if !ok {
		return errors.Errorf("input: unknown touch id %d", id)
	}
	delete(t.activeTouches, id)

	if err := t.dev.SetSlot(slot); err != nil {
		return errors.Wrap(err, "input: touch end")
	}
	if err := t.dev.SetTrackingID(-1); err != nil {
		return errors.Wrap(err, "input: touch end")
	}
	if len(t.activeTouches) == 0 {
		if err := t.dev.SetTouch(false); err != nil {
			return errors.Wrap(err, "input: touch end")
		}
	}
	return t.dev.Sync()
}

// TouchCancel is equivalent to TouchEnd: the device has no distinct
// cancellation signal, so a cancelled contact is simply released.
func (t *Touch) TouchCancel(id int) error {
	return t.TouchEnd(id)
}

// ActiveTouchCount returns the number of contacts currently tracked.
func (t *Touch) ActiveTouchCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.activeTouches)
}

// Close destroys the underlying uinput device.
func (t *Touch) Close() error {
	return t.dev.Close()
}
