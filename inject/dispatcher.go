// Package inject types a finished command into another process's window.
//
// A send is fire-and-forget: the target is looked up fresh, brought to the
// foreground, and the open-chat key, the text, and the submit key are replayed
// on a background goroutine. OS failures are logged and swallowed.
package inject

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/charmbracelet/log"
)

var (
	ErrClosed       = errors.New("dispatcher is closed")
	ErrEmptyCommand = errors.New("command is empty")
	ErrUnsupported  = errors.New("key injection is not supported on this platform")
)

// VKReturn is the virtual-key code for Enter.
const VKReturn uint16 = 0x0D

// DefaultTarget is the process name the overlay sends to.
const DefaultTarget = "VRising"

// Window is an opaque top-level window handle.
type Window uintptr

// Desktop is the set of OS primitives a send needs.
type Desktop interface {
	// FindWindow returns the first visible top-level window owned by a
	// process with the given name (case-insensitive, extension ignored).
	FindWindow(process string) (Window, bool, error)
	// ForceForeground activates w even when focus-stealing prevention would
	// refuse it. It must not leave any input queues attached.
	ForceForeground(w Window) error
	KeyDown(vk uint16) error
	KeyUp(vk uint16) error
	// Unicode sends one UTF-16 unit as a key-down or key-up event.
	Unicode(unit uint16, up bool) error
}

// Clock sleeps. Tests swap in one that returns immediately.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock uses time.Sleep.
var RealClock Clock = realClock{}

// Delays give the target's input loop time to notice each step.
type Delays struct {
	// Settle is waited after focusing, after opening chat and after typing.
	Settle time.Duration
	// KeyHold is waited after each edge of a key press.
	KeyHold time.Duration
	// PerChar is waited after each typed character.
	PerChar time.Duration
}

var DefaultDelays = Delays{
	Settle:  50 * time.Millisecond,
	KeyHold: 5 * time.Millisecond,
	PerChar: 10 * time.Millisecond,
}

type Config struct {
	Target  string
	OpenKey uint16
	Delays  Delays
	Clock   Clock
}

func (c Config) withDefaults() Config {
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.OpenKey == 0 {
		c.OpenKey = VKReturn
	}
	if c.Clock == nil {
		c.Clock = RealClock
	}
	return c
}

// Dispatcher runs sends on background goroutines.
type Dispatcher struct {
	desktop Desktop
	cfg     Config
	log     *log.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(desktop Desktop, cfg Config, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		desktop: desktop,
		cfg:     cfg.withDefaults(),
		log:     logger,
	}
}

// Job tracks one background send.
type Job struct {
	Text string

	done  chan struct{}
	found bool
	errs  []error
}

// Done is closed when the send has finished or given up.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the send has finished.
func (j *Job) Wait() { <-j.done }

// Delivered reports whether a target window was found. Valid after Done.
func (j *Job) Delivered() bool { return j.found }

// Err joins the OS failures swallowed during the send. Valid after Done.
func (j *Job) Err() error { return errors.Join(j.errs...) }

// Send starts typing text into the target window and returns at once. The
// error is only for sends that could not be started.
func (d *Dispatcher) Send(text string) (*Job, error) {
	if text == "" {
		return nil, ErrEmptyCommand
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	job := &Job{Text: text, done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(job.done)
		d.run(job)
	}()
	return job, nil
}

// Close rejects further sends and waits for running ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(job *Job) {
	hwnd, ok, err := d.desktop.FindWindow(d.cfg.Target)
	if err != nil {
		job.errs = append(job.errs, fmt.Errorf("find window: %w", err))
	}
	if !ok {
		d.log.Debug("target not running", "target", d.cfg.Target, "err", err)
		return
	}
	job.found = true

	d.step(job, "foreground", d.desktop.ForceForeground(hwnd))
	d.cfg.Clock.Sleep(d.cfg.Delays.Settle)

	d.press(job, d.cfg.OpenKey)
	d.cfg.Clock.Sleep(d.cfg.Delays.Settle)

	d.typeText(job, job.Text)
	d.cfg.Clock.Sleep(d.cfg.Delays.Settle)

	d.press(job, d.cfg.OpenKey)

	if len(job.errs) > 0 {
		d.log.Debug("send finished with errors", "command", job.Text, "err", job.Err())
	} else {
		d.log.Debug("sent", "command", job.Text)
	}
}

func (d *Dispatcher) press(job *Job, vk uint16) {
	d.step(job, "key down", d.desktop.KeyDown(vk))
	d.cfg.Clock.Sleep(d.cfg.Delays.KeyHold)
	d.step(job, "key up", d.desktop.KeyUp(vk))
	d.cfg.Clock.Sleep(d.cfg.Delays.KeyHold)
}

func (d *Dispatcher) typeText(job *Job, text string) {
	for _, unit := range utf16.Encode([]rune(text)) {
		d.step(job, "unicode down", d.desktop.Unicode(unit, false))
		d.step(job, "unicode up", d.desktop.Unicode(unit, true))
		d.cfg.Clock.Sleep(d.cfg.Delays.PerChar)
	}
}

func (d *Dispatcher) step(job *Job, what string, err error) {
	if err != nil {
		job.errs = append(job.errs, fmt.Errorf("%s: %w", what, err))
	}
}
