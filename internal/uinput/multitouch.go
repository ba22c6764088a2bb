package uinput

// Multitouch is a protocol-B multitouch device: up to maxSlots concurrent
// contact points, each identified by a tracking ID assigned to a slot via
// ABS_MT_SLOT before its ABS_MT_TRACKING_ID/POSITION_X/POSITION_Y are set.
type Multitouch struct {
	*device
	MaxSlots int
}

// NewMultitouch creates a multitouch device covering [0, offsetX+width) x
// [0, offsetY+height), matching the upstream virtual-device layout that
// extends device bounds to cover an output offset rather than clamping to
// a single monitor's origin.
func NewMultitouch(name string, width, height, offsetX, offsetY, maxSlots int) (*Multitouch, error) {
	maxX := int32(offsetX + width)
	maxY := int32(offsetY + height)

	dev, err := create(name,
		[]int{btnTouch, btnToolFinger},
		[]absRange{
			{code: absX, min: 0, max: maxX},
			{code: absY, min: 0, max: maxY},
			{code: absMTSlot, min: 0, max: int32(maxSlots - 1)},
			{code: absMTTrackingID, min: 0, max: 65535},
			{code: absMTPositionX, min: 0, max: maxX},
			{code: absMTPositionY, min: 0, max: maxY},
		},
	)
	if err != nil {
		return nil, err
	}
	return &Multitouch{device: dev, MaxSlots: maxSlots}, nil
}

// SetSlot selects the active ABS_MT_SLOT for subsequent tracking-ID and
// position events.
func (m *Multitouch) SetSlot(slot int) error { return m.abs(absMTSlot, int32(slot)) }

// SetTrackingID assigns (id >= 0) or releases (id == -1) the tracking ID
// for the currently selected slot.
func (m *Multitouch) SetTrackingID(id int32) error { return m.abs(absMTTrackingID, id) }

// SetPosition reports the contact's position in both the legacy ABS_X/Y
// axes (for single-touch-only listeners) and the per-slot MT axes.
func (m *Multitouch) SetPosition(x, y int32) error {
	if err := m.abs(absMTPositionX, x); err != nil {
		return err
	}
	if err := m.abs(absMTPositionY, y); err != nil {
		return err
	}
	if err := m.abs(absX, x); err != nil {
		return err
	}
	return m.abs(absY, y)
}

// SetTouch reports BTN_TOUCH / BTN_TOOL_FINGER, true while at least one
// contact is active.
func (m *Multitouch) SetTouch(down bool) error {
	if err := m.key(btnTouch, down); err != nil {
		return err
	}
	return m.key(btnToolFinger, down)
}

// Sync emits SYN_REPORT, committing the preceding ABS/KEY events as one
// atomic input frame.
func (m *Multitouch) Sync() error { return m.sync() }
