package uinput

// Stylus is a Wacom-class pen device: absolute position at 10x resolution,
// 4096-level pressure, +/-90 degree tilt on both axes, and hover distance,
// with BTN_TOOL_PEN/BTN_TOOL_RUBBER selecting tip vs. eraser and
// BTN_STYLUS/BTN_STYLUS2 as barrel buttons.
type Stylus struct {
	*device
}

// resolution is the sub-pixel multiplier applied to the position axes,
// matching the upstream stylus device's 10x precision.
const resolution = 10

// NewStylus creates a stylus device covering [0, offsetX+width) x
// [0, offsetY+height) at 10x resolution.
func NewStylus(name string, width, height, offsetX, offsetY int) (*Stylus, error) {
	maxX := int32((offsetX + width) * resolution)
	maxY := int32((offsetY + height) * resolution)

	dev, err := create(name,
		[]int{btnTouch, btnToolPen, btnToolRubber, btnStylus, btnStylus2},
		[]absRange{
			{code: absX, min: 0, max: maxX},
			{code: absY, min: 0, max: maxY},
			{code: absPressure, min: 0, max: 4095},
			{code: absTiltX, min: -90, max: 90},
			{code: absTiltY, min: -90, max: 90},
			{code: absDistance, min: 0, max: 255},
		},
	)
	if err != nil {
		return nil, err
	}
	return &Stylus{device: dev}, nil
}

// SetPosition reports the pen tip position in device coordinates
// (already scaled by the 10x resolution).
func (s *Stylus) SetPosition(x, y int32) error {
	if err := s.abs(absX, x); err != nil {
		return err
	}
	return s.abs(absY, y)
}

// SetPressure reports tip pressure, 0-4095.
func (s *Stylus) SetPressure(v int32) error { return s.abs(absPressure, v) }

// SetTilt reports the pen's tilt on both axes, -90 to 90 degrees.
func (s *Stylus) SetTilt(x, y int32) error {
	if err := s.abs(absTiltX, x); err != nil {
		return err
	}
	return s.abs(absTiltY, y)
}

// SetDistance reports hover distance, 0-255, used while the pen is in
// range but not touching the surface.
func (s *Stylus) SetDistance(v int32) error { return s.abs(absDistance, v) }

// SetTouch reports BTN_TOUCH: the tip is pressed against the surface.
func (s *Stylus) SetTouch(down bool) error { return s.key(btnTouch, down) }

// SetToolPen reports BTN_TOOL_PEN: the pen's writing end is in range.
func (s *Stylus) SetToolPen(down bool) error { return s.key(btnToolPen, down) }

// SetToolRubber reports BTN_TOOL_RUBBER: the pen's eraser end is in range.
func (s *Stylus) SetToolRubber(down bool) error { return s.key(btnToolRubber, down) }

// SetBarrelButton1 reports BTN_STYLUS, the pen's first barrel button.
func (s *Stylus) SetBarrelButton1(down bool) error { return s.key(btnStylus, down) }

// SetBarrelButton2 reports BTN_STYLUS2, the pen's second barrel button.
func (s *Stylus) SetBarrelButton2(down bool) error { return s.key(btnStylus2, down) }

// Sync emits SYN_REPORT, committing the preceding ABS/KEY events as one
// atomic input frame.
func (s *Stylus) Sync() error { return s.sync() }
