package platform

import (
	"context"
	"sync"
	"time"

	"github.com/ciuagent/ciuagent/model"
)

// Mock is a deterministic, in-memory Adapter used by tests throughout the
// repository. It maintains a simple framebuffer and cursor position that
// tests can drive directly via Paint/SetCursor.
type Mock struct {
	mu      sync.Mutex
	width   int
	height  int
	pixels  []byte
	cursorX int
	cursorY int
	window  model.WindowInfo
	typed   []string
	keys    []string
	clicks  []Click
}

// Click records one Click/DoubleClick call observed by a Mock.
type Click struct {
	X, Y   int
	Button Button
}

// NewMock creates a Mock with a default 1920x1080 blank framebuffer.
func NewMock() *Mock {
	w, h := 1920, 1080
	return &Mock{
		width:  w,
		height: h,
		pixels: make([]byte, w*h*4),
	}
}

// Paint overwrites the mock framebuffer, resizing if needed.
func (m *Mock) Paint(width, height int, pixels []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.width, m.height = width, height
	m.pixels = append([]byte(nil), pixels...)
}

// SetCursor sets the mock cursor position directly, bypassing MoveCursor.
func (m *Mock) SetCursor(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
}

// SetActiveWindow sets the window ActiveWindow reports.
func (m *Mock) SetActiveWindow(w model.WindowInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = w
}

// TypedText returns every string sent via TypeText, in order.
func (m *Mock) TypedText() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.typed...)
}

// KeyPresses returns every chord sent via KeyPress, in order.
func (m *Mock) KeyPresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

// Clicks returns every Click/DoubleClick call observed, in order.
func (m *Mock) Clicks() []Click {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Click(nil), m.clicks...)
}

func (m *Mock) CaptureFrame(ctx context.Context) (model.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Frame{
		Pixels:    append([]byte(nil), m.pixels...),
		Width:     m.width,
		Height:    m.height,
		Timestamp: time.Now(),
		CursorX:   m.cursorX,
		CursorY:   m.cursorY,
	}, nil
}

func (m *Mock) CursorPos(ctx context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorX, m.cursorY, nil
}

func (m *Mock) MoveCursor(ctx context.Context, x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
	return nil
}

func (m *Mock) Click(ctx context.Context, x, y int, button Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
	m.clicks = append(m.clicks, Click{X: x, Y: y, Button: button})
	return nil
}

func (m *Mock) DoubleClick(ctx context.Context, x, y int) error {
	return m.Click(ctx, x, y, ButtonLeft)
}

func (m *Mock) Scroll(ctx context.Context, x, y, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
	return nil
}

func (m *Mock) TypeText(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typed = append(m.typed, text)
	return nil
}

func (m *Mock) KeyPress(ctx context.Context, chord string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, chord)
	return nil
}

func (m *Mock) ScreenSize(ctx context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, nil
}

func (m *Mock) ActiveWindow(ctx context.Context) (model.WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window, nil
}
