package uinput

// AbsolutePointer is a single-point absolute pointing device: plain
// ABS_X/ABS_Y plus the three standard mouse buttons. Unlike Multitouch it
// carries no slots or tracking IDs, matching a simple graphics-tablet-style
// pointer rather than a touchscreen.
type AbsolutePointer struct {
	*device
}

// NewAbsolutePointer creates an absolute pointer covering
// [0, offsetX+width) x [0, offsetY+height).
func NewAbsolutePointer(name string, width, height, offsetX, offsetY int) (*AbsolutePointer, error) {
	maxX := int32(offsetX + width)
	maxY := int32(offsetY + height)

	dev, err := create(name,
		[]int{btnLeft, btnMiddle, btnRight},
		[]absRange{
			{code: absX, min: 0, max: maxX},
			{code: absY, min: 0, max: maxY},
		},
	)
	if err != nil {
		return nil, err
	}
	return &AbsolutePointer{device: dev}, nil
}

// SetPosition reports the pointer position in device coordinates.
func (p *AbsolutePointer) SetPosition(x, y int32) error {
	if err := p.abs(absX, x); err != nil {
		return err
	}
	return p.abs(absY, y)
}

// SetLeft reports BTN_LEFT.
func (p *AbsolutePointer) SetLeft(down bool) error { return p.key(btnLeft, down) }

// SetMiddle reports BTN_MIDDLE.
func (p *AbsolutePointer) SetMiddle(down bool) error { return p.key(btnMiddle, down) }

// SetRight reports BTN_RIGHT.
func (p *AbsolutePointer) SetRight(down bool) error { return p.key(btnRight, down) }

// Sync emits SYN_REPORT, committing the preceding ABS/KEY events as one
// atomic input frame.
func (p *AbsolutePointer) Sync() error { return p.sync() }
