// Package uinput creates virtual input devices via the Linux /dev/uinput
// character device: true multitouch (protocol B, multiple ABS_MT_SLOT
// tracking points), Wacom-class stylus devices with pressure and tilt
// axes, and a bare absolute pointer. None of these device classes is
// expressible through bendahl/uinput (which this codebase also depends on,
// for the plain relative mouse), so all three are built directly against
// the kernel ioctl interface via golang.org/x/sys/unix.
package uinput

import (
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pkg/errors"
)

// Event types, key/axis codes, and ioctl numbers from linux/input-event-codes.h
// and linux/uinput.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	absX            = 0x00
	absY            = 0x01
	absPressure     = 0x18
	absDistance     = 0x19
	absTiltX        = 0x1a
	absTiltY        = 0x1b
	absMTSlot       = 0x2f
	absMTTouchMajor = 0x30
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39

	btnLeft       = 0x110
	btnRight      = 0x111
	btnMiddle     = 0x112
	btnTouch      = 0x14a
	btnToolFinger = 0x145
	btnToolPen    = 0x140
	btnToolRubber = 0x141
	btnStylus     = 0x14b
	btnStylus2    = 0x14c

	absCnt = 0x40

	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	maxNameSize = 80
)

type inputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// userDev mirrors struct uinput_user_dev: the legacy setup struct written
// to the uinput fd before UI_DEV_CREATE, used instead of the newer
// UI_DEV_SETUP/UI_ABS_SETUP ioctls for compatibility with older kernels.
type userDev struct {
	Name       [maxNameSize]byte
	ID         inputID
	EffectsMax uint32
	AbsMax     [absCnt]int32
	AbsMin     [absCnt]int32
	AbsFuzz    [absCnt]int32
	AbsFlat    [absCnt]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// device is the shared low-level handle Multitouch, Stylus, and
// AbsolutePointer embed:
// an open /dev/uinput fd with its event-bit setup already written.
type device struct {
	file *os.File
}

func openDevice() (*os.File, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrap(err, "uinput: open /dev/uinput")
	}
	return f, nil
}

func ioctlSetBit(fd uintptr, request uintptr, value int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(value))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlNoArg(fd uintptr, request uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// absRange describes one ABS_* axis's [min, max] for device setup.
type absRange struct {
	code     int
	min, max int32
}

// create registers evKey/evAbs bits, abs ranges, writes the uinput_user_dev
// struct, and issues UI_DEV_CREATE, returning the opened device.
func create(name string, keys []int, absAxes []absRange) (*device, error) {
	f, err := openDevice()
	if err != nil {
		return nil, err
	}

	if err := ioctlSetBit(f.Fd(), uiSetEvBit, evKey); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "uinput: set EV_KEY")
	}
	for _, k := range keys {
		if err := ioctlSetBit(f.Fd(), uiSetKeyBit, k); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "uinput: set key bit %#x", k)
		}
	}

	if len(absAxes) > 0 {
		if err := ioctlSetBit(f.Fd(), uiSetEvBit, evAbs); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "uinput: set EV_ABS")
		}
		for _, a := range absAxes {
			if err := ioctlSetBit(f.Fd(), uiSetAbsBit, a.code); err != nil {
				f.Close()
				return nil, errors.Wrapf(err, "uinput: set abs bit %#x", a.code)
			}
		}
	}

	var ud userDev
	copy(ud.Name[:], name)
	ud.ID = inputID{BusType: 0x06, Vendor: 0x4c69, Product: 0x6e67, Version: 1} // "Li" "ng" - LinGlide
	for _, a := range absAxes {
		ud.AbsMin[a.code] = a.min
		ud.AbsMax[a.code] = a.max
	}

	if err := writeStruct(f, &ud); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "uinput: write uinput_user_dev")
	}

	if err := ioctlNoArg(f.Fd(), uiDevCreate); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "uinput: UI_DEV_CREATE")
	}

	return &device{file: f}, nil
}

func writeStruct(f *os.File, v *userDev) error {
	buf := (*[unsafe.Sizeof(userDev{})]byte)(unsafe.Pointer(v))[:]
	_, err := f.Write(buf)
	return err
}

func (d *device) emit(evType, code uint16, value int32) error {
	ev := inputEvent{Type: evType, Code: code, Value: value}
	now := time.Now()
	ev.Time.Sec = int64(now.Unix())
	ev.Time.Usec = int64(now.Nanosecond() / 1000)
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&ev))[:]
	_, err := d.file.Write(buf)
	return err
}

func (d *device) key(code uint16, down bool) error {
	v := int32(0)
	if down {
		v = 1
	}
	return d.emit(evKey, code, v)
}

func (d *device) abs(code uint16, value int32) error {
	return d.emit(evAbs, code, value)
}

func (d *device) sync() error {
	return d.emit(evSyn, synReport, 0)
}

func (d *device) Close() error {
	ioctlNoArg(d.file.Fd(), uiDevDestroy)
	return d.file.Close()
}
