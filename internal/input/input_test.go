package input

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/uinput"
)

func TestToPressureClampsToDeviceRange(t *testing.T) {
	assert.Equal(t, int32(0), toPressure(-1))
	assert.Equal(t, int32(0), toPressure(0))
	assert.Equal(t, int32(maxPressure), toPressure(1))
	assert.Equal(t, int32(maxPressure), toPressure(2))
	assert.Equal(t, int32(maxPressure/2), toPressure(0.5))
}

func TestToTiltClampsToDeviceRange(t *testing.T) {
	assert.Equal(t, int32(-90), toTilt(-200))
	assert.Equal(t, int32(90), toTilt(200))
	assert.Equal(t, int32(45), toTilt(45.9))
}

func TestPenButtonIndexMapping(t *testing.T) {
	assert.Equal(t, 0, penButtonIndex(protocol.PenButtonPrimary))
	assert.Equal(t, 2, penButtonIndex(protocol.PenButtonSecondary))
	assert.Equal(t, 1, penButtonIndex(protocol.PenButtonTertiary))
	assert.Equal(t, 0, penButtonIndex(protocol.PenButtonEraser))
}

// newTestTouch builds a Touch around a bare Multitouch struct, bypassing
// NewMultitouch's /dev/uinput open so slot-assignment logic can be
// exercised without a real device.
func newTestTouch(maxSlots int) *Touch {
	return &Touch{
		dev:           &uinput.Multitouch{MaxSlots: maxSlots},
		width:         100,
		height:        200,
		activeTouches: make(map[int]int),
	}
}

func TestTouchToAbsoluteAppliesScaleAndOffset(t *testing.T) {
	tc := newTestTouch(10)
	tc.offX, tc.offY = 10, 20
	x, y := tc.toAbsolute(0.5, 0.25)
	assert.Equal(t, int32(60), x)  // 0.5*100 + 10
	assert.Equal(t, int32(70), y) // 0.25*200 + 20
}

func TestFindFreeSlotPicksLowestUnused(t *testing.T) {
	tc := newTestTouch(4)
	tc.activeTouches[1] = 0
	tc.activeTouches[2] = 2
	assert.Equal(t, 1, tc.findFreeSlot())
}

func TestFindFreeSlotReturnsNegativeWhenFull(t *testing.T) {
	tc := newTestTouch(2)
	tc.activeTouches[1] = 0
	tc.activeTouches[2] = 1
	assert.Equal(t, -1, tc.findFreeSlot())
}

func newTestStylus() *Stylus {
	return &Stylus{dev: &uinput.Stylus{}, width: 100, height: 200}
}

func TestStylusToAbsoluteAppliesResolutionMultiplier(t *testing.T) {
	s := newTestStylus()
	x, y := s.toAbsolute(0.5, 0.5)
	assert.Equal(t, int32(500), x) // (0.5*100) * 10
	assert.Equal(t, int32(1000), y)
}
