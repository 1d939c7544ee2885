package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storynest/internal/models"
)

type fakePlayer struct {
	position float64
	playing  bool
	seeks    []float64
}

func (p *fakePlayer) Position() float64 { return p.position }
func (p *fakePlayer) Seek(sec float64)  { p.position = sec; p.seeks = append(p.seeks, sec) }
func (p *fakePlayer) Play()             { p.playing = true }
func (p *fakePlayer) Pause()            { p.playing = false }

func floatPtr(f float64) *float64 { return &f }

func windowWithLoop() models.LoopWindow {
	// Initial segment 2s-5s plays once, then 3s-5s repeats.
	return models.LoopWindow{
		InitialStart: 2,
		InitialEnd:   5,
		LoopStart:    floatPtr(3),
		LoopEnd:      floatPtr(5),
	}
}

func TestAttachNewSourceStartsInitialSegment(t *testing.T) {
	c := NewLoopMediaController()
	p := &fakePlayer{}

	c.Attach("waves", p, windowWithLoop())

	assert.Equal(t, 2.0, p.position)
	assert.True(t, p.playing)
}

func TestTickAdvancesIntoLoopSegment(t *testing.T) {
	c := NewLoopMediaController()
	p := &fakePlayer{}
	c.Attach("waves", p, windowWithLoop())

	p.position = 4.2
	c.Tick("waves")
	st, ok := c.State("waves")
	assert.True(t, ok)
	assert.False(t, st.PassedInitialSegment)
	assert.Equal(t, 4.2, st.PositionSec)

	// Crossing the initial end hands off to the loop start.
	p.position = 5.1
	c.Tick("waves")
	st, _ = c.State("waves")
	assert.True(t, st.PassedInitialSegment)
	assert.Equal(t, 3.0, p.position)

	// Inside the loop window nothing moves.
	p.position = 4.0
	c.Tick("waves")
	assert.Equal(t, 4.0, p.position)

	// Past the loop end snaps back to the loop start.
	p.position = 5.4
	c.Tick("waves")
	assert.Equal(t, 3.0, p.position)

	// Before the loop start (external seek) snaps forward too.
	p.position = 0.5
	c.Tick("waves")
	assert.Equal(t, 3.0, p.position)
}

func TestTickWithoutLoopSegmentRestartsFromZero(t *testing.T) {
	c := NewLoopMediaController()
	p := &fakePlayer{}
	c.Attach("chimes", p, models.LoopWindow{InitialStart: 0, InitialEnd: 4})

	p.position = 4.3
	c.Tick("chimes")

	st, _ := c.State("chimes")
	assert.True(t, st.PassedInitialSegment)
	assert.Equal(t, 0.0, p.position)

	// With no loop window configured, later ticks leave playback alone.
	p.position = 9.9
	c.Tick("chimes")
	assert.Equal(t, 9.9, p.position)
}

func TestDetachThenAttachResumesPosition(t *testing.T) {
	c := NewLoopMediaController()
	p1 := &fakePlayer{}
	c.Attach("waves", p1, windowWithLoop())

	p1.position = 5.1
	c.Tick("waves") // passes initial, seeks to 3
	p1.position = 4.5
	c.Detach("waves")

	// A new element for the same source picks up where the old one stopped.
	p2 := &fakePlayer{}
	c.Attach("waves", p2, windowWithLoop())
	assert.Equal(t, 4.5, p2.position)
	assert.True(t, p2.playing)

	st, _ := c.State("waves")
	assert.True(t, st.PassedInitialSegment, "segment progress survives remounts")
}

func TestPauseAndResumeSurviveRemount(t *testing.T) {
	c := NewLoopMediaController()
	p1 := &fakePlayer{}
	c.Attach("waves", p1, windowWithLoop())

	p1.position = 3.7
	c.Pause("waves")
	assert.False(t, p1.playing)
	c.Detach("waves")

	p2 := &fakePlayer{}
	c.Attach("waves", p2, windowWithLoop())
	assert.False(t, p2.playing, "paused source must not autoplay on remount")
	assert.Equal(t, 3.7, p2.position)

	c.Resume("waves")
	assert.True(t, p2.playing)
}

func TestClearForgetsSource(t *testing.T) {
	c := NewLoopMediaController()
	p1 := &fakePlayer{}
	c.Attach("waves", p1, windowWithLoop())
	p1.position = 4.4
	c.Detach("waves")
	c.Clear("waves")

	_, ok := c.State("waves")
	assert.False(t, ok)

	// After Clear the source starts fresh.
	p2 := &fakePlayer{}
	c.Attach("waves", p2, windowWithLoop())
	assert.Equal(t, 2.0, p2.position)
}

func TestTickUnknownSourceIsNoop(t *testing.T) {
	c := NewLoopMediaController()
	c.Tick("never-attached")
	c.Pause("never-attached")
	c.Resume("never-attached")
	c.Detach("never-attached")
}
