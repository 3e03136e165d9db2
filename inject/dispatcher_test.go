package inject

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDesktop struct {
	mu       sync.Mutex
	window   Window
	running  bool
	findErr  error
	focusErr error
	keyErr   error
	events   []string
}

func (f *fakeDesktop) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeDesktop) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeDesktop) FindWindow(process string) (Window, bool, error) {
	f.record("find " + process)
	return f.window, f.running, f.findErr
}

func (f *fakeDesktop) ForceForeground(w Window) error {
	f.record(fmt.Sprintf("focus %d", w))
	return f.focusErr
}

func (f *fakeDesktop) KeyDown(vk uint16) error {
	f.record(fmt.Sprintf("down %#x", vk))
	return f.keyErr
}

func (f *fakeDesktop) KeyUp(vk uint16) error {
	f.record(fmt.Sprintf("up %#x", vk))
	return f.keyErr
}

func (f *fakeDesktop) Unicode(unit uint16, up bool) error {
	if up {
		f.record(fmt.Sprintf("u+ %c", rune(unit)))
	} else {
		f.record(fmt.Sprintf("u- %c", rune(unit)))
	}
	return nil
}

// instantClock records requested delays without sleeping.
type instantClock struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (c *instantClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
}

func (c *instantClock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum time.Duration
	for _, d := range c.slept {
		sum += d
	}
	return sum
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestDispatcher(desk Desktop, clock Clock) *Dispatcher {
	return New(desk, Config{Clock: clock}, quietLogger())
}

func TestSend_FullSequence(t *testing.T) {
	desk := &fakeDesktop{window: 7, running: true}
	clock := &instantClock{}
	d := newTestDispatcher(desk, clock)

	job, err := d.Send(".tp 1")
	require.NoError(t, err)
	job.Wait()

	assert.True(t, job.Delivered())
	assert.NoError(t, job.Err())
	assert.Equal(t, []string{
		"find VRising",
		"focus 7",
		"down 0xd", "up 0xd",
		"u- .", "u+ .",
		"u- t", "u+ t",
		"u- p", "u+ p",
		"u-  ", "u+  ",
		"u- 1", "u+ 1",
		"down 0xd", "up 0xd",
	}, desk.Events())

	// three settles, two presses with two holds each, five characters
	want := 3*DefaultDelays.Settle + 4*DefaultDelays.KeyHold + 5*DefaultDelays.PerChar
	assert.Equal(t, want, clock.Total())
}

func TestSend_NoTargetIsSilent(t *testing.T) {
	desk := &fakeDesktop{}
	clock := &instantClock{}
	d := newTestDispatcher(desk, clock)

	job, err := d.Send(".help")
	require.NoError(t, err)
	job.Wait()

	assert.False(t, job.Delivered())
	assert.NoError(t, job.Err())
	assert.Equal(t, []string{"find VRising"}, desk.Events())
	assert.Zero(t, clock.Total())
}

func TestSend_FindErrorWithoutTarget(t *testing.T) {
	desk := &fakeDesktop{findErr: ErrUnsupported}
	d := newTestDispatcher(desk, &instantClock{})

	job, err := d.Send(".help")
	require.NoError(t, err)
	job.Wait()

	assert.False(t, job.Delivered())
	assert.ErrorIs(t, job.Err(), ErrUnsupported)
}

func TestSend_OSFailuresAreSwallowed(t *testing.T) {
	boom := errors.New("boom")
	desk := &fakeDesktop{window: 1, running: true, focusErr: boom, keyErr: boom}
	d := newTestDispatcher(desk, &instantClock{})

	job, err := d.Send("x")
	require.NoError(t, err)
	job.Wait()

	assert.True(t, job.Delivered())
	assert.ErrorIs(t, job.Err(), boom)
	// the sequence still runs to the end
	events := desk.Events()
	assert.Equal(t, "up 0xd", events[len(events)-1])
}

func TestSend_CustomTargetAndKey(t *testing.T) {
	desk := &fakeDesktop{window: 3, running: true}
	d := New(desk, Config{
		Target:  "Game",
		OpenKey: 0x54,
		Delays:  Delays{},
		Clock:   &instantClock{},
	}, quietLogger())

	job, err := d.Send("a")
	require.NoError(t, err)
	job.Wait()

	assert.Equal(t, []string{
		"find Game", "focus 3",
		"down 0x54", "up 0x54",
		"u- a", "u+ a",
		"down 0x54", "up 0x54",
	}, desk.Events())
}

func TestSend_SurrogatePairs(t *testing.T) {
	desk := &fakeDesktop{window: 1, running: true}
	d := newTestDispatcher(desk, &instantClock{})

	job, err := d.Send("😀")
	require.NoError(t, err)
	job.Wait()

	var units int
	for _, e := range desk.Events() {
		if len(e) > 2 && e[:2] == "u-" {
			units++
		}
	}
	assert.Equal(t, 2, units)
}

func TestSend_EmptyCommand(t *testing.T) {
	d := newTestDispatcher(&fakeDesktop{}, &instantClock{})
	_, err := d.Send("")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestClose(t *testing.T) {
	desk := &fakeDesktop{window: 1, running: true}
	d := newTestDispatcher(desk, &instantClock{})

	jobs := make([]*Job, 0, 5)
	for i := 0; i < 5; i++ {
		job, err := d.Send(fmt.Sprintf("cmd %d", i))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	d.Close()
	for _, job := range jobs {
		select {
		case <-job.Done():
		default:
			t.Fatal("Close returned before a job finished")
		}
	}

	_, err := d.Send("late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.Equal(t, VKReturn, cfg.OpenKey)
	assert.Equal(t, RealClock, cfg.Clock)
}
