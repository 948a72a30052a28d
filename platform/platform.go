// Package platform defines the out-of-scope Platform Adapter contract: the
// capability set the core agent drives to observe and control the live OS
// desktop session. Concrete implementations are per-OS; this package also
// ships a deterministic in-memory Mock used by every other package's tests.
package platform

import (
	"context"
	"fmt"

	"github.com/ciuagent/ciuagent/model"
)

// Button enumerates the mouse buttons Click can target.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Adapter is the capability set the core agent requires of the operating
// system. Implementations must be safe for concurrent use by exactly one
// caller at a time; the Director never issues overlapping calls.
type Adapter interface {
	// CaptureFrame grabs the current screen content in logical (DPI
	// normalized) coordinates.
	CaptureFrame(ctx context.Context) (model.Frame, error)

	// CursorPos returns the OS-reported cursor position.
	CursorPos(ctx context.Context) (x, y int, err error)

	// MoveCursor moves the cursor to an absolute logical position.
	MoveCursor(ctx context.Context, x, y int) error

	// Click performs a single click at the given position.
	Click(ctx context.Context, x, y int, button Button) error

	// DoubleClick performs a double click at the given position.
	DoubleClick(ctx context.Context, x, y int) error

	// Scroll scrolls at the given position by amount platform-normalized
	// ticks (positive is down/forward).
	Scroll(ctx context.Context, x, y, amount int) error

	// TypeText sends literal UTF-8 text as keystrokes.
	TypeText(ctx context.Context, text string) error

	// KeyPress sends one key chord, e.g. "ctrl+shift+s", "enter", "f5".
	KeyPress(ctx context.Context, chord string) error

	// ScreenSize returns the logical screen dimensions.
	ScreenSize(ctx context.Context) (width, height int, err error)

	// ActiveWindow returns the foreground window, if the platform supports
	// querying it. Implementations that cannot support this return
	// ErrUnsupported.
	ActiveWindow(ctx context.Context) (model.WindowInfo, error)
}

// ErrUnsupported is returned by optional Adapter capabilities the underlying
// platform cannot provide.
var ErrUnsupported = fmt.Errorf("platform: capability not supported")

// Create returns the Adapter implementation for the running OS. The core
// never names a concrete implementation directly; callers outside of tests
// should always go through Create.
func Create(kind string) (Adapter, error) {
	switch kind {
	case "mock", "":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("platform: unknown adapter kind %q (only \"mock\" ships in this build; wire a real OS backend behind this factory)", kind)
	}
}
