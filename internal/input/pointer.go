package input

import (
	"math"
	"sync"

	"github.com/bendahl/uinput"
	"github.com/pkg/errors"

	ourinput "github.com/BeckhamLabsLLC/linglide/internal/uinput"
)

// Pointer drives the mouse: absolute position and button state through a
// dedicated absolute-pointer device, and scroll through a separate
// relative-axis device, mirroring how a touch-first remote desktop keeps
// its pointer and wheel on different virtual hardware.
type Pointer struct {
	mu sync.Mutex

	dev    *ourinput.AbsolutePointer
	scroll uinput.Mouse
	width  float64
	height float64
	offX   float64
	offY   float64

	buttons [3]bool // left, middle, right
}

// NewPointer creates the absolute pointer and its companion scroll-wheel
// device, covering [offsetX, offsetX+width) x [offsetY, offsetY+height).
func NewPointer(width, height, offsetX, offsetY int) (*Pointer, error) {
	dev, err := ourinput.NewAbsolutePointer("LinGlide Mouse", width, height, offsetX, offsetY)
	if err != nil {
		return nil, err
	}

	scroll, err := uinput.CreateMouse("/dev/uinput", []byte("LinGlide Scroll"))
	if err != nil {
		dev.Close()
		return nil, errors.Wrap(err, "input: create scroll mouse")
	}

	return &Pointer{
		dev:    dev,
		scroll: scroll,
		width:  float64(width),
		height: float64(height),
		offX:   float64(offsetX),
		offY:   float64(offsetY),
	}, nil
}

func (p *Pointer) toAbsolute(x, y float64) (int32, int32) {
	absX := int32(x*p.width) + int32(p.offX)
	absY := int32(y*p.height) + int32(p.offY)
	return absX, absY
}

func buttonSetter(dev *ourinput.AbsolutePointer, button int) (func(bool) error, bool) {
	switch button {
	case 0:
		return dev.SetLeft, true
	case 1:
		return dev.SetMiddle, true
	case 2:
		return dev.SetRight, true
	default:
		return nil, false
	}
}

// MouseMove reports the pointer moving to a new position without changing
// button state.
func (p *Pointer) MouseMove(x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	absX, absY := p.toAbsolute(x, y)
	if err := p.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	return p.dev.Sync()
}

// MouseDown reports a button press at the given position. button is
// 0=left, 1=middle, 2=right.
func (p *Pointer) MouseDown(button int, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := buttonSetter(p.dev, button)
	if !ok {
		return errors.Errorf("input: invalid button %d", button)
	}
	if button < len(p.buttons) {
		p.buttons[button] = true
	}

	absX, absY := p.toAbsolute(x, y)
	if err := p.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := set(true); err != nil {
		return err
	}
	return p.dev.Sync()
}

// MouseUp reports a button release at the given position.
func (p *Pointer) MouseUp(button int, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := buttonSetter(p.dev, button)
	if !ok {
		return errors.Errorf("input: invalid button %d", button)
	}
	if button < len(p.buttons) {
		p.buttons[button] = false
	}

	absX, absY := p.toAbsolute(x, y)
	if err := p.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := set(false); err != nil {
		return err
	}
	return p.dev.Sync()
}

// Click presses and releases a button at the given position.
func (p *Pointer) Click(button int, x, y float64) error {
	if err := p.MouseDown(button, x, y); err != nil {
		return err
	}
	return p.MouseUp(button, x, y)
}

// IsButtonPressed reports the last known state of the given button.
func (p *Pointer) IsButtonPressed(button int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if button < 0 || button >= len(p.buttons) {
		return false
	}
	return p.buttons[button]
}

// Scroll emits a relative wheel scroll, converting the client's pixel-ish
// delta into discrete notches the same way a touchpad driver divides
// accumulated scroll distance into wheel clicks.
func (p *Pointer) Scroll(dx, dy float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	scrollX := int32(math.Round(-dx / 15.0))
	scrollY := int32(math.Round(-dy / 15.0))
	if scrollX == 0 && scrollY == 0 {
		return nil
	}

	if scrollY != 0 {
		if err := p.scroll.Wheel(false, scrollY); err != nil {
			return errors.Wrap(err, "input: scroll vertical")
		}
	}
	if scrollX != 0 {
		if err := p.scroll.Wheel(true, scrollX); err != nil {
			return errors.Wrap(err, "input: scroll horizontal")
		}
	}
	return nil
}

// Close destroys both underlying uinput devices.
func (p *Pointer) Close() error {
	err1 := p.dev.Close()
	err2 := p.scroll.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
