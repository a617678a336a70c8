package window

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// idleWait bounds how long the message loop blocks when nothing is scheduled.
const idleWait = time.Second

// Window provides platform windowing, refresh scheduling and a task queue for its loop goroutine.
// Wraps platform-specific window implementations with a common interface.
//
// The goroutine that creates the window owns it: every callback runs on that goroutine from within
// ProcessMessages. Post and RequestRedraw may be called from any goroutine.
type Window interface {
	// SetRefreshCallback sets the function called once per refresh. A refresh happens after RequestRedraw,
	// when the platform asks for the window to be redrawn, and every refresh interval when one is set.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetRefreshCallback(callback func())

	// SetRefreshInterval sets a fixed refresh cadence. Zero refreshes only on demand.
	//
	// Parameters:
	//   - interval: the time between refreshes, or 0
	SetRefreshInterval(interval time.Duration)

	// RequestRedraw schedules one refresh on the next message loop iteration.
	RequestRedraw()

	// Post queues f to run on the loop goroutine and wakes the loop.
	//
	// Parameters:
	//   - f: the task to run
	Post(f func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetTitle replaces the text displayed in the title bar.
	//
	// Parameters:
	//   - title: the window title text
	SetTitle(title string)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to exit after the current iteration. Safe to call from callbacks.
	RequestClose()

	// Close closes the window and releases platform resources. Must not be called from a callback.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Each iteration waits for events or the next scheduled refresh,
	// runs posted tasks in order, then invokes the refresh callback if a refresh is due.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, event callbacks and the loop's schedule.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// resizable controls whether the user can resize the window.
	resizable bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// wake interrupts a blocking platform wait. Nil until the platform window exists and after Close.
	// Guarded by tasksMu.
	wake func()

	// onRefresh is called once per due refresh.
	onRefresh func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	tasksMu sync.Mutex
	tasks   []func()

	redraw          atomic.Bool
	refreshInterval time.Duration
	nextRefresh     time.Time
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window, visible and ready for ProcessMessages
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-apng",
		width:     640,
		height:    480,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetRefreshCallback(callback func()) {
	w.onRefresh = callback
}

func (w *engineWindow) SetRefreshInterval(interval time.Duration) {
	w.refreshInterval = max(interval, 0)
	w.nextRefresh = time.Time{}
	w.notify()
}

func (w *engineWindow) RequestRedraw() {
	w.redraw.Store(true)
	w.notify()
}

func (w *engineWindow) Post(f func()) {
	w.tasksMu.Lock()
	w.tasks = append(w.tasks, f)
	w.tasksMu.Unlock()
	w.notify()
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		platformWaitEvents(w, w.nextWait(time.Now()))
		w.step(time.Now())
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// step runs one loop iteration after the platform wait: queued tasks first, then at most one refresh.
func (w *engineWindow) step(now time.Time) {
	w.runTasks()
	if w.refreshDue(now) && w.onRefresh != nil {
		w.onRefresh()
	}
}

// runTasks runs the tasks queued so far in order. Tasks posted while running wait for the next iteration.
func (w *engineWindow) runTasks() {
	w.tasksMu.Lock()
	tasks := w.tasks
	w.tasks = nil
	w.tasksMu.Unlock()

	for _, f := range tasks {
		f()
	}
}

// refreshDue reports whether a refresh should run now and consumes the pending redraw request.
// The interval cadence is anchored to the first refresh and skips ahead if the loop falls behind.
func (w *engineWindow) refreshDue(now time.Time) bool {
	due := w.redraw.Swap(false)
	if w.refreshInterval > 0 {
		if w.nextRefresh.IsZero() {
			w.nextRefresh = now
		}
		if !now.Before(w.nextRefresh) {
			due = true
			w.nextRefresh = w.nextRefresh.Add(w.refreshInterval)
			if !w.nextRefresh.After(now) {
				w.nextRefresh = now.Add(w.refreshInterval)
			}
		}
	}
	return due
}

// nextWait returns how long the platform may block before the next iteration has work to do.
func (w *engineWindow) nextWait(now time.Time) time.Duration {
	w.tasksMu.Lock()
	pending := len(w.tasks) > 0
	w.tasksMu.Unlock()
	if pending || w.redraw.Load() {
		return 0
	}
	if w.refreshInterval > 0 {
		if w.nextRefresh.IsZero() {
			return 0
		}
		return min(max(w.nextRefresh.Sub(now), 0), idleWait)
	}
	return idleWait
}

// notify wakes a blocked platform wait. It holds tasksMu so the wake cannot race with Close.
func (w *engineWindow) notify() {
	w.tasksMu.Lock()
	defer w.tasksMu.Unlock()
	if w.wake != nil {
		w.wake()
	}
}
