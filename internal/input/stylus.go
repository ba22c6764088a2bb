package input

import (
	"sync"

	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/uinput"
)

const (
	maxPressure     = 4095
	stylusHoverDist = 50
)

// Stylus drives a Wacom-class pen device, tracking the tool-switch state
// machine a real tablet driver implements: whether the pen is in proximity,
// whether its tip is down, and whether it is currently acting as an eraser.
type Stylus struct {
	mu sync.Mutex

	dev    *uinput.Stylus
	width  float64
	height float64
	offX   float64
	offY   float64

	inRange       bool
	tipDown       bool
	eraserMode    bool
	stylusButton1 bool
	stylusButton2 bool
}

// NewStylus creates a stylus device covering [offsetX, offsetX+width) x
// [offsetY, offsetY+height) in device coordinates.
func NewStylus(width, height, offsetX, offsetY int) (*Stylus, error) {
	dev, err := uinput.NewStylus("LinGlide Stylus", width, height, offsetX, offsetY)
	if err != nil {
		return nil, err
	}
	return &Stylus{
		dev:    dev,
		width:  float64(width),
		height: float64(height),
		offX:   float64(offsetX),
		offY:   float64(offsetY),
	}, nil
}

func (s *Stylus) toAbsolute(x, y float64) (int32, int32) {
	absX := (int32(x*s.width) + int32(s.offX)) * resolution
	absY := (int32(y*s.height) + int32(s.offY)) * resolution
	return absX, absY
}

func toPressure(pressure float64) int32 {
	if pressure < 0 {
		pressure = 0
	} else if pressure > 1 {
		pressure = 1
	}
	v := int32(pressure * maxPressure)
	if v < 0 {
		return 0
	}
	if v > maxPressure {
		return maxPressure
	}
	return v
}

func toTilt(tilt float64) int32 {
	if tilt < -90 {
		tilt = -90
	} else if tilt > 90 {
		tilt = 90
	}
	return int32(tilt)
}

// setTool emits BTN_TOOL_RUBBER or BTN_TOOL_PEN depending on eraserMode.
func (s *Stylus) setTool(down bool) error {
	if s.eraserMode {
		return s.dev.SetToolRubber(down)
	}
	return s.dev.SetToolPen(down)
}

// PenHover reports the pen in proximity but not touching the surface.
func (s *Stylus) PenHover(x, y, _ float64, tiltX, tiltY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	absX, absY := s.toAbsolute(x, y)
	tx, ty := toTilt(tiltX), toTilt(tiltY)

	if !s.inRange {
		s.inRange = true
		if err := s.setTool(true); err != nil {
			return err
		}
	}

	if err := s.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := s.dev.SetPressure(0); err != nil {
		return err
	}
	if err := s.dev.SetTilt(tx, ty); err != nil {
		return err
	}
	if err := s.dev.SetDistance(stylusHoverDist); err != nil {
		return err
	}
	return s.dev.Sync()
}

// PenDown reports the tip touching the surface, switching tool type between
// pen and eraser if button indicates the stylus was flipped.
func (s *Stylus) PenDown(x, y, pressure, tiltX, tiltY float64, button protocol.PenButton) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	absX, absY := s.toAbsolute(x, y)
	p := toPressure(pressure)
	tx, ty := toTilt(tiltX), toTilt(tiltY)

	newEraserMode := button == protocol.PenButtonEraser
	if newEraserMode != s.eraserMode {
		if s.inRange {
			if err := s.setTool(false); err != nil {
				return err
			}
		}
		s.eraserMode = newEraserMode
	}

	s.inRange = true
	if err := s.setTool(true); err != nil {
		return err
	}

	if err := s.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := s.dev.SetPressure(p); err != nil {
		return err
	}
	if err := s.dev.SetTilt(tx, ty); err != nil {
		return err
	}
	if err := s.dev.SetDistance(0); err != nil {
		return err
	}
	if err := s.dev.SetTouch(true); err != nil {
		return err
	}
	s.tipDown = true
	return s.dev.Sync()
}

// PenMove reports pen movement while the tip may or may not be down,
// falling back to PenHover when the tip is not touching.
func (s *Stylus) PenMove(x, y, pressure, tiltX, tiltY float64) error {
	s.mu.Lock()
	tipDown := s.tipDown
	s.mu.Unlock()
	if !tipDown {
		return s.PenHover(x, y, pressure, tiltX, tiltY)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	absX, absY := s.toAbsolute(x, y)
	p := toPressure(pressure)
	tx, ty := toTilt(tiltX), toTilt(tiltY)

	if err := s.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := s.dev.SetPressure(p); err != nil {
		return err
	}
	if err := s.dev.SetTilt(tx, ty); err != nil {
		return err
	}
	return s.dev.Sync()
}

// PenUp reports the tip lifting from the surface, returning to hover.
func (s *Stylus) PenUp(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tipDown {
		return nil
	}

	absX, absY := s.toAbsolute(x, y)

	if err := s.dev.SetPosition(absX, absY); err != nil {
		return err
	}
	if err := s.dev.SetPressure(0); err != nil {
		return err
	}
	if err := s.dev.SetDistance(stylusHoverDist); err != nil {
		return err
	}
	if err := s.dev.SetTouch(false); err != nil {
		return err
	}
	s.tipDown = false
	return s.dev.Sync()
}

// PenLeave reports the pen leaving proximity entirely, releasing the tip
// and any held buttons first if necessary.
func (s *Stylus) PenLeave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange {
		return nil
	}

	if s.tipDown {
		if err := s.dev.SetTouch(false); err != nil {
			return err
		}
		s.tipDown = false
	}
	if s.stylusButton1 {
		if err := s.dev.SetBarrelButton1(false); err != nil {
			return err
		}
		s.stylusButton1 = false
	}
	if s.stylusButton2 {
		if err := s.dev.SetBarrelButton2(false); err != nil {
			return err
		}
		s.stylusButton2 = false
	}

	if err := s.setTool(false); err != nil {
		return err
	}

	s.inRange = false
	return s.dev.Sync()
}

// PenButton reports a barrel button press or release. Primary and Eraser
// are handled through PenDown/PenUp instead and are no-ops here.
func (s *Stylus) PenButton(button protocol.PenButton, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state *bool
	var set func(bool) error
	switch button {
	case protocol.PenButtonSecondary:
		state, set = &s.stylusButton1, s.dev.SetBarrelButton1
	case protocol.PenButtonTertiary:
		state, set = &s.stylusButton2, s.dev.SetBarrelButton2
	default:
		return nil
	}

	if *state == pressed {
		return nil
	}
	*state = pressed

	if err := set(pressed); err != nil {
		return err
	}
	return s.dev.Sync()
}

// IsInRange reports whether the pen is currently within proximity range.
func (s *Stylus) IsInRange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inRange
}

// IsTipDown reports whether the pen tip is currently pressed down.
func (s *Stylus) IsTipDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tipDown
}

// Close destroys the underlying uinput device.
func (s *Stylus) Close() error {
	return s.dev.Close()
}
